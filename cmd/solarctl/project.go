package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"solarman/internal/config"
	"solarman/internal/projection"
	"solarman/internal/templates"
)

type projectOptions struct {
	bill     float64
	rate     float64
	increase float64
	years    int
	discount float64
	every    int
	asJSON   bool
}

func newProjectCmd() *cobra.Command {
	defaults := config.DefaultConfig().Comparison
	opts := &projectOptions{}

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Compare an escalating utility bill with a flat solar rate",
		Long: "Project a monthly utility bill that rises every year against a flat solar rate.\n" +
			"Without --rate the flat rate is the bill less --discount percent.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProject(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.bill, "bill", defaults.ChartBill, "Current monthly utility bill")
	f.Float64Var(&opts.rate, "rate", 0, "Flat monthly solar rate")
	f.Float64Var(&opts.increase, "increase", defaults.ChartIncrease, "Annual utility increase in percent")
	f.IntVar(&opts.years, "years", defaults.HorizonYears, "Projection horizon in years")
	f.Float64Var(&opts.discount, "discount", defaults.DiscountPercent, "Discount below the bill used when --rate is not given")
	f.IntVar(&opts.every, "every", 5, "Print every Nth year")
	f.BoolVar(&opts.asJSON, "json", false, "Print the full projection as JSON")
	cmd.MarkFlagsMutuallyExclusive("rate", "discount")

	return cmd
}

func runProject(cmd *cobra.Command, opts *projectOptions) error {
	in := projection.Input{
		CurrentMonthlyBill: opts.bill,
		FlatRate:           opts.rate,
		AnnualIncreasePct:  opts.increase,
		HorizonYears:       opts.years,
	}
	if !cmd.Flags().Changed("rate") {
		in.FlatRate = projection.FlatRateFromDiscount(opts.bill, opts.discount)
	}

	series, summary, err := projection.Compare(in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"input":   in,
			"summary": summary,
			"series":  series,
		})
	}

	printProjection(out, in, series, summary, opts.every)
	return nil
}

func printProjection(w io.Writer, in projection.Input, s projection.Series, sum projection.Summary, every int) {
	if every < 1 {
		every = 1
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTitle(fmt.Sprintf("%d-YEAR ENERGY COST COMPARISON", in.HorizonYears)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderField("Current bill", templates.FormatCents(in.CurrentMonthlyBill)+" / month"))
	fmt.Fprintln(w, renderField("Flat solar rate", templates.FormatCents(in.FlatRate)+" / month"))
	fmt.Fprintln(w, renderField("Annual increase", strconv.FormatFloat(in.AnnualIncreasePct, 'f', -1, 64)+"%"))
	fmt.Fprintln(w, renderField("Monthly savings", templates.FormatMoney(sum.MonthlySavings)))
	fmt.Fprintln(w, renderField("First-year savings", templates.FormatMoney(sum.FirstYearSavings)))
	fmt.Fprintln(w, renderField(fmt.Sprintf("%d-year savings", sum.HorizonYears), goodStyle.Render(templates.FormatMoney(sum.TotalSavings))))
	fmt.Fprintln(w)

	t := table{
		Headers:    []string{"Year", "Utility / mo", "Solar / mo", "Annual savings", "Cumulative"},
		RightAlign: []bool{true, true, true, true, true},
	}
	last := s.Years()
	for y := 0; y <= last; y++ {
		if y%every != 0 && y != last {
			continue
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(y),
			templates.FormatCents(s.MonthlyUtility[y]),
			templates.FormatCents(s.MonthlySolar[y]),
			templates.FormatMoney(s.AnnualUtility[y] - s.AnnualSolar[y]),
			templates.FormatMoney(s.CumulativeSavings[y]),
		})
	}
	fmt.Fprint(w, renderTable(t))
}
