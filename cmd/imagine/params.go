package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
)

func runParams(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("params", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := a.newProcessor(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	info := p.Info
	uid := info.UID()
	fmt.Fprintf(a.stdout, "%s %s uid %x\n\n", info, info.Category, uid)

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDEFAULT\tMIN\tMAX\tUNIT")
	for _, prm := range p.Parameters().All() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%g\t%g\t%s\n",
			prm.ID, prm.Name, prm.FormatValue(prm.DefaultValue), prm.Min, prm.Max, prm.Unit)
	}
	return w.Flush()
}
