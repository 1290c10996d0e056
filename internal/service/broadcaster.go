package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToDashboards(msgType string, payload interface{})
}

// MsgRiskUpdated is pushed when a learner's risk label changes
const MsgRiskUpdated = "risk_updated"
