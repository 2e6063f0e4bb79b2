package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"relay-hq/triton/pkg/automation/queue"
	"relay-hq/triton/pkg/automation/store"
	"relay-hq/triton/pkg/bus"
)

// Submit queues an inbound command for the agent's command loop. It never
// blocks; when the agent is saturated the command is rejected.
func (a *Agent) Submit(cmd bus.Command) error {
	select {
	case a.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("command channel full, rejecting %s", cmd.CommandName())
	}
}

// serve consumes inbound commands until the context is cancelled.
func (a *Agent) serve(ctx context.Context) {
	defer close(a.done)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-a.commands:
			a.handle(ctx, cmd)
		}
	}
}

// handle executes one inbound command. Command failures are reported on
// the bus and logged; they never stop the loop.
func (a *Agent) handle(ctx context.Context, cmd bus.Command) {
	var err error

	switch c := cmd.(type) {
	case bus.TriggerFire:
		matched := a.dispatcher.Dispatch(ctx, c.TriggerType, c.Data, c.Context)
		a.logger.Debug("trigger dispatched",
			"trigger_type", c.TriggerType,
			"matched", matched,
		)

	case bus.RuleCreate:
		_, err = a.deps.Store.Create(ctx, c.Spec)

	case bus.RuleUpdate:
		_, err = a.deps.Store.Update(ctx, c.ID, c.Patch)

	case bus.RuleDelete:
		if err = a.deps.Store.Delete(ctx, c.ID); err == nil {
			a.monitor.Delete(c.ID)
		}

	case bus.RuleExecute:
		err = a.executeAdHoc(c)

	case bus.WorkflowStart:
		_, err = a.tracker.Start(c.WorkflowID, c.ContactID, c.Context)

	case bus.WorkflowComplete:
		_, err = a.tracker.Complete(c.WorkflowID, c.Success, c.Result)

	default:
		err = fmt.Errorf("unknown command %T", cmd)
	}

	if err != nil {
		a.logger.Error("command failed",
			"command", cmd.CommandName(),
			"error", err,
		)
		if a.deps.Bus != nil {
			a.deps.Bus.Publish(bus.Error{
				Method: cmd.CommandName(),
				Err:    err,
				Context: map[string]any{
					"command": cmd.CommandName(),
				},
			})
		}
	}
}

// executeAdHoc enqueues a direct execution request, bypassing trigger
// matching. The rule must exist and be active; a deactivated rule is
// rejected up front rather than dropped later at dequeue time.
func (a *Agent) executeAdHoc(c bus.RuleExecute) error {
	r, err := a.deps.Store.Get(c.RuleID)
	if err != nil {
		return err
	}
	if !r.IsActive {
		return fmt.Errorf("rule %s: %w", r.ID, store.ErrRuleInactive)
	}

	a.execQueue.Enqueue(&queue.Item{
		ID:        newItemID(),
		Kind:      queue.KindExecution,
		RuleID:    r.ID,
		ContactID: c.ContactID,
		Context:   c.Context,
		Priority:  r.Priority,
	})
	return nil
}

func newItemID() string {
	return uuid.New().String()
}
