package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/gheop3s/gheop3s/internal/domain/screening"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	warning = color.New(color.Bold, color.FgYellow).SprintFunc()
	good    = color.New(color.Bold, color.FgGreen).SprintFunc()
)

func writeRuleTable(w io.Writer, rules []screening.RuleSummary, withAlternative bool) {
	tw := tablewriter.NewWriter(w)
	header := []string{"code", "list", "title"}
	if withAlternative {
		header = append(header, "alternative")
	}
	tw.SetHeader(header)
	tw.SetAutoWrapText(true)

	for _, r := range rules {
		row := []string{r.Code, strconv.Itoa(r.List), r.Title}
		if withAlternative {
			row = append(row, r.Alternative)
		}
		tw.Append(row)
	}
	tw.Render()
}

func writeScreeningResult(w io.Writer, res *screening.Result) {
	fmt.Fprintf(w, "%s %s (catalog %s %s)\n", bold("Screening"), res.ID, res.CatalogName, res.CatalogVersion)
	if len(res.Triggered) == 0 {
		fmt.Fprintln(w, good("No potentially inappropriate medication found."))
		return
	}
	fmt.Fprintln(w, warning(fmt.Sprintf("%d rule(s) triggered:", len(res.Triggered))))
	writeRuleTable(w, res.Triggered, true)
}
