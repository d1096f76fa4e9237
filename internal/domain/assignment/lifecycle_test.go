package assignment

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		current string
		action  string
		want    string
		wantErr bool
	}{
		{name: "submit draft", current: StatusDraft, action: ActionSubmit, want: StatusSubmitted},
		{name: "lock submitted", current: StatusSubmitted, action: ActionLock, want: StatusLocked},
		{name: "reopen submitted", current: StatusSubmitted, action: ActionReopen, want: StatusDraft},
		{name: "lock draft", current: StatusDraft, action: ActionLock, wantErr: true},
		{name: "reopen locked", current: StatusLocked, action: ActionReopen, wantErr: true},
		{name: "submit twice", current: StatusSubmitted, action: ActionSubmit, wantErr: true},
		{name: "unknown action", current: StatusDraft, action: "archive", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := Transition(tc.current, tc.action)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				if got != tc.current {
					t.Fatalf("status changed on failed transition: %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestEditable(t *testing.T) {
	if !Editable(StatusDraft) {
		t.Fatal("draft must be editable")
	}
	if Editable(StatusSubmitted) || Editable(StatusLocked) {
		t.Fatal("submitted and locked must not be editable")
	}
	if !Completed(StatusLocked) || Completed(StatusDraft) {
		t.Fatal("completed mismatch")
	}
}
