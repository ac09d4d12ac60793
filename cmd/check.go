package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"domainwatch/internal/config"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/lifecycle"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/storage"
	"domainwatch/pkg/storage/memory"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// checkCommand runs a single check over all active domains. With
// --domains-file it works on an in-memory store seeded from that file and
// needs no database. Per-domain failures never change the exit code.
func checkCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Checks every active domain once and sends due notifications",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			domainsFile, _ := cmd.Flags().GetString("domains-file")

			var strg storage.AllStorage
			if domainsFile != "" {
				seed, err := memory.LoadSeed(domainsFile)
				if err != nil {
					logger.Fatal(ctx, "could not load domains file", zap.Error(err))
				}
				mem := memory.New()
				if err := seed.Apply(ctx, mem); err != nil {
					logger.Fatal(ctx, "could not seed domains", zap.String("file", domainsFile), zap.Error(err))
				}
				strg = mem
			} else {
				pg, closeStrg := getPostgres(ctx, cfg)
				defer closeStrg()
				strg = pg
			}

			reg, closeReg := getRegistry(ctx, cfg)
			defer closeReg()

			run, err := getChecker(cfg, strg, reg).Run(ctx)
			if err != nil {
				logger.Error(ctx, "check run did not complete", zap.Error(err))
			}

			domains, err := strg.ActiveDomains(context.WithoutCancel(ctx))
			if err != nil {
				logger.Error(ctx, "could not list domains", zap.Error(err))

				return
			}
			printDomains(os.Stdout, domains, time.Now())
			fmt.Fprintf(os.Stdout, "\nchecked %d, succeeded %d, preserved %d, errored %d, retried %d, notified %d, suppressed %d\n", //nolint: lll
				run.Checked, run.Succeeded, run.Preserved, run.Errored, run.Retried, run.Notified, run.Suppressed)
		},
	}

	cmd.Flags().String("domains-file", "", "YAML file of domains and channels to check without a database")

	return cmd
}

func printDomains(out io.Writer, domains []domain.Domain, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tSTATUS\tEXPIRES\tDAYS LEFT\tREGISTRAR\tFAILURES")
	for _, d := range domains {
		expires, days := "-", "-"
		if d.ExpirationDate != nil {
			expires = d.ExpirationDate.Format(time.DateOnly)
			days = strconv.Itoa(lifecycle.DaysLeft(*d.ExpirationDate, now))
		}
		registrar := d.Registrar
		if registrar == "" {
			registrar = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", d.Name, d.Status, expires, days, registrar, d.ConsecutiveFailures)
	}
	_ = w.Flush()
}
