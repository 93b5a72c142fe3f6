package policy

import "github.com/hitoshi/postboard/internal/model"

// DecisionRecorder は認可判定の結果を記録する。
type DecisionRecorder interface {
	RecordAuthzDecision(action string, allowed bool)
}

// recordedAuthorizer は判定結果をDecisionRecorderに記録するAuthorizer。
type recordedAuthorizer struct {
	next     Authorizer
	recorder DecisionRecorder
}

// WithRecorder は判定ごとに結果を記録するAuthorizerを返す。recorderがnilならnextをそのまま返す。
func WithRecorder(next Authorizer, recorder DecisionRecorder) Authorizer {
	if recorder == nil {
		return next
	}
	return &recordedAuthorizer{next: next, recorder: recorder}
}

func (a *recordedAuthorizer) CanPerform(identity *model.Identity, action Action, resource Resource) error {
	err := a.next.CanPerform(identity, action, resource)
	a.recorder.RecordAuthzDecision(action.String(), err == nil)
	return err
}
