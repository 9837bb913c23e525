package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wecr8/damp-backend/internal/campaign"
	"github.com/wecr8/damp-backend/internal/catalog"
	"github.com/wecr8/damp-backend/pkg/bigquery"
	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/money"
	"github.com/wecr8/damp-backend/pkg/redis"
)

func (c *cli) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the embedded product catalog",
		RunE: func(*cobra.Command, []string) error {
			cat := catalog.Default()
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPRICE\tDEPOSIT\tVOTE OPTION")
			for _, p := range cat.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name,
					money.Format(p.Price, cat.Currency()), money.Format(p.Deposit, cat.Currency()), p.VoteOption)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) campaignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Inspect pre-order campaign counters",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the live campaign status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				redisCfg    config.RedisConfig
				campaignCfg config.CampaignConfig
			)
			if err := c.loadSection(&redisCfg); err != nil {
				return err
			}
			if err := c.loadSection(&campaignCfg); err != nil {
				return err
			}

			client, err := redis.New(cmd.Context(), redisCfg, c.logg)
			if err != nil {
				return err
			}
			defer client.Close()

			svc, err := campaign.NewService(campaign.ServiceParams{Store: client, Config: campaignCfg, Logger: c.logg})
			if err != nil {
				return err
			}
			status, err := svc.Status(cmd.Context())
			if err != nil {
				return err
			}
			return c.printJSON(status)
		},
	})
	return cmd
}

func (c *cli) analyticsCmd() *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Summarize domain events landed in BigQuery",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				gcpCfg config.GCPConfig
				bqCfg  config.BigQueryConfig
			)
			if err := c.loadSection(&gcpCfg); err != nil {
				return err
			}
			if err := c.loadSection(&bqCfg); err != nil {
				return err
			}

			client, err := bigquery.NewClient(cmd.Context(), gcpCfg, bqCfg, c.logg)
			if err != nil {
				return err
			}
			defer client.Close()

			counts, err := client.EventCountsSince(cmd.Context(), time.Now().Add(-since))
			if err != nil {
				return err
			}
			return c.printCounts(counts)
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "look-back window")
	return cmd
}

func (c *cli) printCounts(counts map[string]int64) error {
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT TYPE\tCOUNT")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%d\n", t, counts[t])
	}
	return tw.Flush()
}
