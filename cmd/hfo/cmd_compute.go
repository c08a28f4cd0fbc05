package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/obsidian-forge/hfo/pkg/computequeue"
	"github.com/obsidian-forge/hfo/pkg/models"
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "submit work to the cheap/expensive compute queue (C12 Compute Queue)",
}

func newComputeQueue(a *app) *computequeue.Queue {
	q := computequeue.New(a.pub, a.cfg.Generation)
	cfg := a.cfg.ComputeQueue
	if cfg.CheapRatePerSecond > 0 {
		q.SetRateLimiter(computequeue.LaneCheap, rate.NewLimiter(rate.Limit(cfg.CheapRatePerSecond), max(1, cfg.CheapBurst)))
	}
	if cfg.ExpensiveRatePerSecond > 0 {
		q.SetRateLimiter(computequeue.LaneExpensive, rate.NewLimiter(rate.Limit(cfg.ExpensiveRatePerSecond), max(1, cfg.ExpensiveBurst)))
	}
	return q
}

func newModelClient(a *app, key string) *models.Client {
	return newModelClientOverride(a, key, "")
}

// newModelClientOverride builds a model client for the named tier
// ("cheap"/"expensive"), substituting modelOverride for the configured
// model id when non-empty (the compute CLI's --model flag).
func newModelClientOverride(a *app, key, modelOverride string) *models.Client {
	endpoint, ok := a.cfg.Models[key]
	if !ok {
		return nil
	}
	model := endpoint.Model
	if modelOverride != "" {
		model = modelOverride
	}
	return models.New(models.Config{
		BaseURL: endpoint.BaseURL,
		Model:   model,
		Mode:    models.Mode(endpoint.Mode),
		APIKey:  endpoint.APIKey,
		Timeout: endpoint.Timeout,
	})
}

var computeEmbedLimit int
var computeEnrichLimit int
var computeEmbedModel string
var computeEnrichModel string

var computeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "show compute-queue configuration and a drained, empty queue's lane depths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("compute")
		if err != nil {
			return err
		}
		defer a.Close()

		q := newComputeQueue(a)
		return printResult(map[string]any{
			"cheap_rate_per_second":     a.cfg.ComputeQueue.CheapRatePerSecond,
			"cheap_burst":               a.cfg.ComputeQueue.CheapBurst,
			"expensive_rate_per_second": a.cfg.ComputeQueue.ExpensiveRatePerSecond,
			"expensive_burst":           a.cfg.ComputeQueue.ExpensiveBurst,
			"depth":                     q.Depth(),
		}, func() { fmt.Printf("compute: depth=%v\n", q.Depth()) })
	},
}

var computeEmbedAllCmd = &cobra.Command{
	Use:   "embed-all",
	Short: "submit up to --limit synthetic embedding jobs to the cheap lane and drain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("compute")
		if err != nil {
			return err
		}
		defer a.Close()

		client := newModelClientOverride(a, "cheap", computeEmbedModel)
		q := newComputeQueue(a)
		q.RegisterHandler(computequeue.LaneCheap, "embed", func(ctx context.Context, item computequeue.Item) (any, error) {
			if client == nil {
				return nil, fmt.Errorf("no cheap model configured")
			}
			return client.Complete(ctx, []models.ChatMessage{{Role: "user", Content: fmt.Sprintf("embed: %v", item.Payload)}})
		})

		for i := 0; i < computeEmbedLimit; i++ {
			if _, err := q.Submit(computequeue.Item{
				ID: fmt.Sprintf("embed-%d", i), Priority: 5,
				Lane: computequeue.LaneCheap, WorkType: "embed",
				Payload: fmt.Sprintf("item-%d", i), SubmittedAt: time.Now(),
			}); err != nil {
				return err
			}
		}
		q.Run(withTimeoutBackground(), true)
		completed, errored := q.Counts()
		return printJSONLine(q.Recent(), "embed-all: completed=%d errored=%d", completed, errored)
	},
}

var computeEnrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "submit up to --limit synthetic enrichment jobs to the expensive lane and drain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("compute")
		if err != nil {
			return err
		}
		defer a.Close()

		client := newModelClientOverride(a, "expensive", computeEnrichModel)
		q := newComputeQueue(a)
		q.RegisterHandler(computequeue.LaneExpensive, "enrich", func(ctx context.Context, item computequeue.Item) (any, error) {
			if client == nil {
				return nil, fmt.Errorf("no expensive model configured")
			}
			return client.Complete(ctx, []models.ChatMessage{{Role: "user", Content: fmt.Sprintf("enrich: %v", item.Payload)}})
		})

		for i := 0; i < computeEnrichLimit; i++ {
			if _, err := q.Submit(computequeue.Item{
				ID: fmt.Sprintf("enrich-%d", i), Priority: 5,
				Lane: computequeue.LaneExpensive, WorkType: "enrich",
				Payload: fmt.Sprintf("item-%d", i), SubmittedAt: time.Now(),
			}); err != nil {
				return err
			}
		}
		q.Run(withTimeoutBackground(), true)
		completed, errored := q.Counts()
		return printJSONLine(q.Recent(), "enrich: completed=%d errored=%d", completed, errored)
	},
}

var computeSearchTask string
var computeSearchLimit int

var computeSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "search the event trail by glob pattern (--task), standing in for document search (§1: document ingestion is out of scope)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("compute")
		if err != nil {
			return err
		}
		defer a.Close()

		pattern := computeSearchTask
		if pattern == "" {
			pattern = "*"
		}
		events, err := a.store.QueryByPattern(withTimeoutBackground(), pattern, 0, computeSearchLimit)
		if err != nil {
			return err
		}
		return printResult(events, func() {
			for _, e := range events {
				fmt.Printf("%d\t%s\t%s\n", e.ID, e.EventType, e.Subject)
			}
		})
	},
}

func init() {
	computeEmbedAllCmd.Flags().IntVar(&computeEmbedLimit, "limit", 10, "maximum items to submit")
	computeEmbedAllCmd.Flags().StringVar(&computeEmbedModel, "model", "", "override the configured cheap-tier model id")
	computeEnrichCmd.Flags().IntVar(&computeEnrichLimit, "limit", 10, "maximum items to submit")
	computeEnrichCmd.Flags().StringVar(&computeEnrichModel, "model", "", "override the configured expensive-tier model id")
	computeSearchCmd.Flags().StringVar(&computeSearchTask, "task", "", "glob pattern to match against event types (default: all)")
	computeSearchCmd.Flags().IntVar(&computeSearchLimit, "limit", 50, "maximum results")

	computeCmd.AddCommand(computeStatusCmd, computeEmbedAllCmd, computeEnrichCmd, computeSearchCmd)
}
