package tui

import "github.com/Veraticus/callguard/internal/model"

// startedMsg carries the first result of the session.
type startedMsg struct {
	result model.AnalysisResult
}

// resultMsg carries a result from the subscription.
type resultMsg struct {
	result model.AnalysisResult
}

// startFailedMsg reports that monitoring could not begin.
type startFailedMsg struct {
	err error
}

// closedMsg is sent when the result subscription ends.
type closedMsg struct{}

// clockMsg refreshes the elapsed call time.
type clockMsg struct{}
