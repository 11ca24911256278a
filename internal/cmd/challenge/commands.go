package challenge

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/louisbranch/wager.space/internal/services/challenge/app"
	domain "github.com/louisbranch/wager.space/internal/services/challenge/domain/challenge"
	"golang.org/x/text/message"
)

type commandLine struct {
	service *app.Service
	out     io.Writer
	printer *message.Printer
	caller  app.Caller
}

type receiptFunc func(context.Context, app.Caller, string) (app.Receipt, error)

func (c *commandLine) dispatch(ctx context.Context, args []string) error {
	name, rest := args[0], args[1:]
	switch name {
	case "create":
		return c.create(ctx, rest)
	case "accept":
		return c.simple(ctx, name, rest, c.service.Accept)
	case "complete":
		return c.simple(ctx, name, rest, c.service.Complete)
	case "finish":
		return c.simple(ctx, name, rest, c.service.Finish)
	case "pause":
		return c.simple(ctx, name, rest, c.service.SwitchPause)
	case "flush":
		return c.simple(ctx, name, rest, c.service.FlushBalance)
	case "extend":
		return c.extend(ctx, rest)
	case "contribute":
		return c.contribute(ctx, rest)
	case "show":
		return c.show(ctx, rest)
	case "list":
		return c.list(ctx, rest)
	case "events":
		return c.events(ctx, rest)
	case "wallet":
		return c.wallet(ctx, rest)
	case "verify":
		return c.verify(ctx)
	default:
		return fmt.Errorf("unknown subcommand %q: %w", name, errUsage)
	}
}

func (c *commandLine) requireCaller() error {
	if strings.TrimSpace(c.caller.Address) == "" {
		return errors.New("caller address is required (-as)")
	}
	return nil
}

func (c *commandLine) create(ctx context.Context, args []string) error {
	if err := c.requireCaller(); err != nil {
		return err
	}
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var req app.CreateRequest
	fs.StringVar(&req.Challenger, "challenger", "", "challenger address")
	fs.StringVar(&req.Contender, "contender", "", "contender address")
	fs.StringVar(&req.Owner, "owner", "", "owner address")
	fs.StringVar(&req.Description, "description", "", "challenge description")
	fs.IntVar(&req.Days, "days", 0, "duration days")
	fs.IntVar(&req.Hours, "hours", 0, "duration hours")
	fs.IntVar(&req.Minutes, "minutes", 0, "duration minutes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	receipt, err := c.service.CreateChallenge(ctx, c.caller, req)
	if err != nil {
		return err
	}
	return c.printReceipt(receipt)
}

func (c *commandLine) simple(ctx context.Context, name string, args []string, run receiptFunc) error {
	if err := c.requireCaller(); err != nil {
		return err
	}
	challengeID, err := singleArg(name, args)
	if err != nil {
		return err
	}
	receipt, err := run(ctx, c.caller, challengeID)
	if err != nil {
		return err
	}
	return c.printReceipt(receipt)
}

func (c *commandLine) extend(ctx context.Context, args []string) error {
	if err := c.requireCaller(); err != nil {
		return err
	}
	fs := flag.NewFlagSet("extend", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	days := fs.Int("days", 0, "extra days")
	hours := fs.Int("hours", 0, "extra hours")
	minutes := fs.Int("minutes", 0, "extra minutes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	challengeID, err := singleArg("extend", fs.Args())
	if err != nil {
		return err
	}
	receipt, err := c.service.ExtendExpiration(ctx, c.caller, challengeID, *days, *hours, *minutes)
	if err != nil {
		return err
	}
	return c.printReceipt(receipt)
}

func (c *commandLine) contribute(ctx context.Context, args []string) error {
	if err := c.requireCaller(); err != nil {
		return err
	}
	if len(args) != 2 {
		return errors.New("usage: contribute <challenge-id> <amount>")
	}
	amount, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", args[1], err)
	}
	receipt, err := c.service.Contribute(ctx, c.caller, args[0], amount)
	if err != nil {
		return err
	}
	return c.printReceipt(receipt)
}

func (c *commandLine) show(ctx context.Context, args []string) error {
	challengeID, err := singleArg("show", args)
	if err != nil {
		return err
	}
	view, err := c.service.GetChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	return c.printView(view)
}

func (c *commandLine) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var req app.ListRequest
	fs.StringVar(&req.Filter, "filter", "", "AIP-160 filter expression")
	fs.IntVar(&req.PageSize, "page-size", 0, "page size")
	fs.StringVar(&req.PageToken, "page-token", "", "page token from a previous list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	page, err := c.service.ListChallenges(ctx, req)
	if err != nil {
		return err
	}
	for _, view := range page.Challenges {
		if _, err := c.printer.Fprintf(c.out, "%s\t%s\t%d\t%s\n", view.ID, view.Status, view.Balance, view.Description); err != nil {
			return err
		}
	}
	if page.NextPageToken != "" {
		_, err = fmt.Fprintf(c.out, "next page token: %s\n", page.NextPageToken)
	}
	return err
}

func (c *commandLine) events(ctx context.Context, args []string) error {
	challengeID, err := singleArg("events", args)
	if err != nil {
		return err
	}
	events, err := c.service.ListEvents(ctx, challengeID)
	if err != nil {
		return err
	}
	for _, evt := range events {
		if _, err := fmt.Fprintf(c.out, "%d\t%s\t%s\t%s\n", evt.Seq, evt.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), domain.EventName(evt.Type), evt.ActorID); err != nil {
			return err
		}
	}
	return nil
}

func (c *commandLine) wallet(ctx context.Context, args []string) error {
	address, err := singleArg("wallet", args)
	if err != nil {
		return err
	}
	balance, err := c.service.WalletBalance(ctx, address)
	if err != nil {
		return err
	}
	_, err = c.printer.Fprintf(c.out, "%s\t%d\n", address, balance)
	return err
}

func (c *commandLine) verify(ctx context.Context) error {
	count, err := c.service.VerifyJournal(ctx)
	if err != nil {
		return err
	}
	_, err = c.printer.Fprintf(c.out, "verified %d events\n", count)
	return err
}

func (c *commandLine) printReceipt(receipt app.Receipt) error {
	status := "committed"
	if receipt.Replayed {
		status = "replayed"
	}
	_, err := c.printer.Fprintf(c.out, "%s\t%s\tseq=%d\tbalance=%d\t%s\n",
		receipt.ChallengeID, receipt.Name, receipt.Seq, receipt.Balance, status)
	return err
}

func (c *commandLine) printView(view app.ChallengeView) error {
	p := c.printer
	rows := []struct {
		label string
		value any
	}{
		{"id", view.ID},
		{"description", view.Description},
		{"challenger", view.Challenger},
		{"contender", view.Contender},
		{"owner", view.Owner},
		{"address", view.Address},
		{"phase", view.Phase.String()},
		{"status", string(view.Status)},
		{"expires", view.ExpirationDate.UTC().Format("2006-01-02T15:04:05Z")},
		{"countdown", fmt.Sprintf("%dd %dh %dm %ds", view.Countdown.Days, view.Countdown.Hours, view.Countdown.Minutes, view.Countdown.Seconds)},
		{"extended", view.Extended},
		{"paused", view.Paused},
		{"flushed", view.Flushed},
		{"balance", view.Balance},
		{"reward", view.Reward},
		{"final balance", view.FinalBalance},
	}
	for _, row := range rows {
		if _, err := p.Fprintf(c.out, "%-14s %v\n", row.label+":", row.value); err != nil {
			return err
		}
	}
	return nil
}

func singleArg(name string, args []string) (string, error) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("usage: %s <id>", name)
	}
	return args[0], nil
}
