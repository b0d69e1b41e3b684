package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/poiesic/fabmatch/policy"
	"github.com/poiesic/fabmatch/recommend"
)

var (
	promptColor = color.New(color.FgGreen, color.Bold)
	titleColor  = color.New(color.FgCyan, color.Bold)
	infoColor   = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
	dimColor    = color.New(color.Faint)
)

func printBanner(out io.Writer) {
	fmt.Fprintln(out, titleColor.Sprint("fabmatch equipment assistant"))
	fmt.Fprintln(out, "Describe the process or equipment you need. Follow-up questions refine the previous answer.")
	fmt.Fprintln(out, "Type '/new' to start over, 'exit' or Ctrl+C to quit.")
	fmt.Fprintln(out)
}

func printItems(out io.Writer, items []recommend.Item) {
	for i, item := range items {
		fmt.Fprintf(out, "%s %s %s\n",
			titleColor.Sprintf("%d.", i+1), item.Name, dimColor.Sprintf("[%s] %.2f", item.EquipmentID, item.Score))
		var details []string
		if item.Category != "" {
			details = append(details, item.Category)
		}
		if len(item.WaferSizes) > 0 {
			details = append(details, strings.Join(item.WaferSizes, ", "))
		}
		if len(item.Materials) > 0 {
			details = append(details, strings.Join(item.Materials, ", "))
		}
		if item.Institution != "" {
			details = append(details, item.Institution)
		}
		if len(details) > 0 {
			fmt.Fprintf(out, "   %s\n", strings.Join(details, " · "))
		}
		if item.Reason != "" {
			fmt.Fprintf(out, "   %s\n", item.Reason)
		}
		if item.ReservationURL != "" {
			fmt.Fprintf(out, "   %s\n", dimColor.Sprint(item.ReservationURL))
		}
	}
}

func printResponse(out io.Writer, resp *recommend.Response) {
	if resp.FollowUp.IsFollowUp {
		fmt.Fprintln(out, infoColor.Sprintf("(follow-up: %s)", resp.FollowUp.Kind))
	}
	if resp.Fallback {
		fmt.Fprintln(out, infoColor.Sprint("No equipment met every condition; showing the closest matches."))
	}
	printItems(out, resp.Recommendations)
	if len(resp.Recommendations) > 0 {
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, resp.Explanation)
	fmt.Fprintln(out, dimColor.Sprintf("session %s · turn %d · %s", resp.SessionID, resp.TurnCount, resp.Elapsed.Round(time.Millisecond)))
}

// printStream writes events as they arrive and returns the session ID.
func printStream(out io.Writer, events <-chan recommend.Event) string {
	sessionID := ""
	for ev := range events {
		sessionID = ev.SessionID
		switch ev.Kind {
		case recommend.EventEquipment:
			printItems(out, ev.Equipment)
			fmt.Fprintln(out)
			fmt.Fprint(out, titleColor.Sprint("Assistant: "))
		case recommend.EventToken:
			fmt.Fprint(out, ev.Token)
		case recommend.EventError:
			fmt.Fprintln(out)
			fmt.Fprintln(out, errorColor.Sprintf("Error: %v", ev.Err))
		case recommend.EventDone:
			fmt.Fprintln(out)
		}
	}
	fmt.Fprintln(out)
	return sessionID
}

func printPolicy(out io.Writer, dir string, institutions []policy.Institution, settings policy.Settings) {
	fmt.Fprintln(out, titleColor.Sprintf("Policy directory: %s", dir))

	fmt.Fprintln(out, titleColor.Sprint("Institutions"))
	slices.SortStableFunc(institutions, func(a, b policy.Institution) int {
		return a.Priority - b.Priority
	})
	for _, inst := range institutions {
		status := ""
		if !inst.Active() {
			status = dimColor.Sprint(" (inactive)")
		}
		fmt.Fprintf(out, "  %3d  %-8s %s%s\n", inst.Priority, inst.ID, inst.Name, status)
	}

	fmt.Fprintln(out, titleColor.Sprint("Settings"))
	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		fmt.Fprintf(out, "  %-22s %v\n", key, settings.Typed(key))
	}
}
