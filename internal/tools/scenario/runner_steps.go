package scenario

import (
	"context"
	"strings"
	"time"

	"github.com/louisbranch/wager.space/internal/services/challenge/app"
)

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case "challenge":
		return r.runChallengeStep(ctx, state, step)
	case "accept":
		return r.runCommandStep(ctx, state, step, "contender", r.service.Accept)
	case "complete":
		return r.runCommandStep(ctx, state, step, "owner", r.service.Complete)
	case "finish":
		return r.runCommandStep(ctx, state, step, "challenger", r.service.Finish)
	case "switch_pause":
		return r.runCommandStep(ctx, state, step, "owner", r.service.SwitchPause)
	case "flush":
		return r.runCommandStep(ctx, state, step, "owner", r.service.FlushBalance)
	case "extend":
		return r.runExtendStep(ctx, state, step)
	case "contribute":
		return r.runContributeStep(ctx, state, step)
	case "advance":
		return r.runAdvanceStep(step)
	case "expect":
		return r.runExpectStep(ctx, state, step)
	case "expect_balance":
		return r.runExpectBalanceStep(ctx, state, step)
	case "expect_wallet":
		return r.runExpectWalletStep(ctx, step)
	case "expect_events":
		return r.runExpectEventsStep(ctx, state, step)
	default:
		return r.failf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runChallengeStep(ctx context.Context, state *scenarioState, step Step) error {
	name := optionalString(step.Args, "name", defaultChallengeName)
	if _, exists := state.challenges[name]; exists {
		return r.failf("challenge %q already declared", name)
	}
	req := app.CreateRequest{
		Challenger:  actorAddress(optionalString(step.Args, "challenger", "challenger")),
		Contender:   actorAddress(optionalString(step.Args, "contender", "contender")),
		Owner:       actorAddress(optionalString(step.Args, "owner", "owner")),
		Description: requiredString(step.Args, "description"),
		Days:        optionalInt(step.Args, "days", 0),
		Hours:       optionalInt(step.Args, "hours", 0),
		Minutes:     optionalInt(step.Args, "minutes", 0),
	}
	receipt, err := r.service.CreateChallenge(ctx, r.caller(step, "owner"), req)
	if handled, err := r.checkOutcome(step, err); handled {
		return err
	}
	state.challenges[name] = receipt.ChallengeID
	state.current = receipt.ChallengeID
	r.logf("challenge %s created: %s", name, receipt.ChallengeID)
	return nil
}

type commandFunc func(context.Context, app.Caller, string) (app.Receipt, error)

func (r *Runner) runCommandStep(ctx context.Context, state *scenarioState, step Step, defaultActor string, run commandFunc) error {
	challengeID, err := r.challengeID(state, step)
	if err != nil {
		return err
	}
	_, err = run(ctx, r.caller(step, defaultActor), challengeID)
	_, err = r.checkOutcome(step, err)
	return err
}

func (r *Runner) runExtendStep(ctx context.Context, state *scenarioState, step Step) error {
	challengeID, err := r.challengeID(state, step)
	if err != nil {
		return err
	}
	_, err = r.service.ExtendExpiration(ctx, r.caller(step, "owner"), challengeID,
		optionalInt(step.Args, "days", 0),
		optionalInt(step.Args, "hours", 0),
		optionalInt(step.Args, "minutes", 0),
	)
	_, err = r.checkOutcome(step, err)
	return err
}

func (r *Runner) runContributeStep(ctx context.Context, state *scenarioState, step Step) error {
	challengeID, err := r.challengeID(state, step)
	if err != nil {
		return err
	}
	amount, ok := readInt(step.Args, "amount")
	if !ok || amount < 0 {
		return r.failf("contribute amount must be a non-negative integer")
	}
	_, err = r.service.Contribute(ctx, r.caller(step, "backer"), challengeID, uint64(amount))
	_, err = r.checkOutcome(step, err)
	return err
}

func (r *Runner) runAdvanceStep(step Step) error {
	d := time.Duration(optionalInt(step.Args, "days", 0))*24*time.Hour +
		time.Duration(optionalInt(step.Args, "hours", 0))*time.Hour +
		time.Duration(optionalInt(step.Args, "minutes", 0))*time.Minute +
		time.Duration(optionalInt(step.Args, "seconds", 0))*time.Second
	if d <= 0 {
		return r.failf("advance requires a positive duration")
	}
	r.clock.Advance(d)
	r.logf("clock advanced by %s to %s", d, r.clock.Now().Format(time.RFC3339))
	return nil
}

func (r *Runner) runExpectStep(ctx context.Context, state *scenarioState, step Step) error {
	challengeID, err := r.challengeID(state, step)
	if err != nil {
		return err
	}
	view, err := r.service.GetChallenge(ctx, challengeID)
	if err != nil {
		return r.failf("get challenge: %v", err)
	}

	flags := map[string]bool{
		"accepted":  view.Accepted,
		"completed": view.Completed,
		"finished":  view.Finished,
		"expired":   view.Expired,
		"extended":  view.Extended,
		"paused":    view.Paused,
		"flushed":   view.Flushed,
	}
	amounts := map[string]uint64{
		"balance":       view.Balance,
		"final_balance": view.FinalBalance,
		"reward":        view.Reward,
		"deposits":      view.Deposits,
		"payouts":       view.Payouts,
	}
	texts := map[string]string{
		"status":      string(view.Status),
		"phase":       view.Phase.String(),
		"description": view.Description,
	}

	for _, key := range sortedKeys(step.Args) {
		if key == "challenge" {
			continue
		}
		if got, ok := flags[key]; ok {
			want, ok := readBool(step.Args, key)
			if !ok {
				return r.failf("expect %s must be a boolean", key)
			}
			if got != want {
				if err := r.assertf("%s = %t, want %t", key, got, want); err != nil {
					return err
				}
			}
			continue
		}
		if got, ok := amounts[key]; ok {
			want, ok := readInt(step.Args, key)
			if !ok || want < 0 {
				return r.failf("expect %s must be a non-negative integer", key)
			}
			if got != uint64(want) {
				if err := r.assertf("%s = %d, want %d", key, got, want); err != nil {
					return err
				}
			}
			continue
		}
		if got, ok := texts[key]; ok {
			want := requiredString(step.Args, key)
			if got != want {
				if err := r.assertf("%s = %q, want %q", key, got, want); err != nil {
					return err
				}
			}
			continue
		}
		return r.failf("unknown expectation %q", key)
	}
	return nil
}

func (r *Runner) runExpectBalanceStep(ctx context.Context, state *scenarioState, step Step) error {
	challengeID, err := r.challengeID(state, step)
	if err != nil {
		return err
	}
	want, _ := readInt(step.Args, "balance")
	got, err := r.service.ChallengeBalance(ctx, challengeID)
	if err != nil {
		return r.failf("challenge balance: %v", err)
	}
	if got != uint64(want) {
		return r.assertf("challenge balance = %d, want %d", got, want)
	}
	return nil
}

func (r *Runner) runExpectWalletStep(ctx context.Context, step Step) error {
	actor := requiredString(step.Args, "actor")
	want, _ := readInt(step.Args, "balance")
	got, err := r.service.WalletBalance(ctx, actorAddress(actor))
	if err != nil {
		return r.failf("wallet balance: %v", err)
	}
	if got != uint64(want) {
		return r.assertf("wallet %s = %d, want %d", actor, got, want)
	}
	return nil
}

func (r *Runner) runExpectEventsStep(ctx context.Context, state *scenarioState, step Step) error {
	challengeID, err := r.challengeID(state, step)
	if err != nil {
		return err
	}
	want := readStringSlice(step.Args, "events")
	events, err := r.service.ListEvents(ctx, challengeID)
	if err != nil {
		return r.failf("list events: %v", err)
	}
	got := make([]string, 0, len(events))
	for _, evt := range events {
		got = append(got, eventName(evt.Type))
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		return r.assertf("events = %v, want %v", got, want)
	}
	return nil
}
