// Package bus defines the message bus contract (component H, spec.md
// §6): directed Send to a named endpoint, and broadcast Publish to a
// topic. The matching engine sends order events to "ExecEngine.process";
// the risk engine forwards valid commands to "ExecEngine.execute" and
// denials to "ExecEngine.process".
package bus

import "context"

const (
	EndpointExecEngineProcess = "ExecEngine.process"
	EndpointExecEngineExecute = "ExecEngine.execute"
)

// Bus is the contract the Risk Engine and Matching Engine consume to
// deliver commands and publish events.
type Bus interface {
	Send(ctx context.Context, endpoint string, payload interface{}) error
	Publish(ctx context.Context, topic string, payload interface{}) error
}
