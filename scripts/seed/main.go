// Наполняет работающий сервис демонстрационной сетью: два резервуара,
// дерево задвижек и трубопроводы между ними. Запуск:
//
//	go run ./scripts/seed -addr http://localhost:8080
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"watergrid/pkg/client"
	"watergrid/pkg/config"
	"watergrid/pkg/domain"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "base URL of the network service")
	timeout := flag.Duration("timeout", 30*time.Second, "total run timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	api := client.New(client.Config{
		BaseURL: *addr,
		Retry: config.RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    200 * time.Millisecond,
			MaxBackoff:        2 * time.Second,
			BackoffMultiplier: 2,
		},
	})

	if err := seed(ctx, api); err != nil {
		fmt.Fprintln(os.Stderr, "seed failed:", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, api *client.Client) error {
	fmt.Println("seeding demo network...")

	tanks := []client.TankParams{
		{
			Name:           "Hilltop Tank",
			Position:       domain.Position{Latitude: 9.9312, Longitude: 76.2673},
			Locality:       "Kochi",
			CapacityLiters: 50000,
			CurrentLiters:  42000,
		},
		{
			Name:           "Riverside Tank",
			Position:       domain.Position{Latitude: 9.9405, Longitude: 76.2750},
			Locality:       "Kochi",
			CapacityLiters: 30000,
			CurrentLiters:  9000,
		},
	}

	for _, params := range tanks {
		tank, err := api.CreateTank(ctx, params)
		if err != nil {
			return fmt.Errorf("create tank %q: %w", params.Name, err)
		}
		fmt.Printf("  tank %s (%s, fill %.1f%%)\n", tank.Name, tank.ID, tank.FillPercent)
	}

	main1, err := api.CreateValve(ctx, client.ValveParams{
		Name:       "Main Gate North",
		Position:   domain.Position{Latitude: 9.9315, Longitude: 76.2680},
		Category:   domain.ValveCategoryMain,
		Households: 120,
		Locality:   "Kochi",
	})
	if err != nil {
		return fmt.Errorf("create valve: %w", err)
	}
	fmt.Printf("  valve %s (%s)\n", main1.Name, main1.ID)

	branches := []client.ValveParams{
		{
			Name:          "Market Street Branch",
			Position:      domain.Position{Latitude: 9.9320, Longitude: 76.2688},
			Category:      domain.ValveCategorySub,
			ParentValveID: main1.ID,
			Households:    45,
			Locality:      "Kochi",
		},
		{
			Name:          "Harbour Road Branch",
			Position:      domain.Position{Latitude: 9.9325, Longitude: 76.2695},
			Category:      domain.ValveCategorySub,
			ParentValveID: main1.ID,
			Households:    30,
			Locality:      "Kochi",
		},
	}

	for _, params := range branches {
		valve, err := api.CreateValve(ctx, params)
		if err != nil {
			return fmt.Errorf("create valve %q: %w", params.Name, err)
		}
		fmt.Printf("  valve %s (%s)\n", valve.Name, valve.ID)
	}

	pipelines := []client.PipelineParams{
		{
			Name:     "North Mainline",
			Capacity: 2000,
			Locality: "Kochi",
			Waypoints: []domain.Position{
				{Latitude: 9.9312, Longitude: 76.2673},
				{Latitude: 9.9315, Longitude: 76.2680},
				{Latitude: 9.9320, Longitude: 76.2688},
			},
		},
		{
			Name:     "Harbour Feeder",
			Capacity: 800,
			Locality: "Kochi",
			Waypoints: []domain.Position{
				{Latitude: 9.9320, Longitude: 76.2688},
				{Latitude: 9.9325, Longitude: 76.2695},
			},
		},
		{
			Name:     "Riverside Mainline",
			Capacity: 1500,
			Locality: "Kochi",
			Waypoints: []domain.Position{
				{Latitude: 9.9405, Longitude: 76.2750},
				{Latitude: 9.9398, Longitude: 76.2741},
			},
		},
	}

	for _, params := range pipelines {
		pipeline, err := api.CreatePipeline(ctx, params)
		if err != nil {
			return fmt.Errorf("create pipeline %q: %w", params.Name, err)
		}
		fmt.Printf("  pipeline %s (%s)\n", pipeline.Name, pipeline.ID)
	}

	flow, err := api.Flow(ctx, client.FlowQuery{})
	if err != nil {
		return fmt.Errorf("compute flow: %w", err)
	}
	fmt.Printf("flow: %d flowing, %d blocked of %d segments\n",
		len(flow.Result.Flowing), len(flow.Result.Blocked), flow.Result.TotalSegments)

	supply, err := api.Supply(ctx)
	if err != nil {
		return fmt.Errorf("compute supply: %w", err)
	}
	fmt.Printf("supply: %d of %d households served (%.1f%%)\n",
		supply.Overview.Stats.ServedHouseholds,
		supply.Overview.Stats.TotalHouseholds,
		supply.Overview.Stats.CoveragePercent)

	fmt.Println("done")
	return nil
}
