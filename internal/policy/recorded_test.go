package policy

import (
	"testing"

	"github.com/hitoshi/postboard/internal/model"
)

type decisionLog struct {
	entries []string
}

func (d *decisionLog) RecordAuthzDecision(action string, allowed bool) {
	result := "deny"
	if allowed {
		result = "allow"
	}
	d.entries = append(d.entries, action+":"+result)
}

func TestWithRecorder_RecordsDecisions(t *testing.T) {
	log := &decisionLog{}
	authz := WithRecorder(New(), log)

	post := &model.Post{ID: "p1", AuthorID: alice.ID}
	_ = authz.CanPerform(alice, ActionUpdate, post)
	err := authz.CanPerform(bob, ActionDelete, post)

	if model.KindOf(err) != model.KindForbidden {
		t.Errorf("decorated decision = %v, want forbidden", err)
	}
	want := []string{"update:allow", "delete:deny"}
	if len(log.entries) != len(want) {
		t.Fatalf("entries = %v, want %v", log.entries, want)
	}
	for i := range want {
		if log.entries[i] != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, log.entries[i], want[i])
		}
	}
}

func TestWithRecorder_NilRecorderReturnsNext(t *testing.T) {
	p := New()
	if got := WithRecorder(p, nil); got != Authorizer(p) {
		t.Errorf("WithRecorder(p, nil) = %T, want the original policy", got)
	}
}
