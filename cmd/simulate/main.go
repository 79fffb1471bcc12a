package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ilramdhan/stepsheet/config"
	"github.com/ilramdhan/stepsheet/internal/modules/simulation"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runFile := runCmd.String("file", "", "TOML sheet to simulate")
	runSteps := runCmd.Int("steps", 0, "Step count (defaults to the sheet's own)")

	replCmd := flag.NewFlagSet("repl", flag.ExitOnError)
	replFile := replCmd.String("file", "", "Optional TOML sheet to start from")
	replSteps := replCmd.Int("steps", 0, "Step count (defaults to the sheet's own)")

	if len(os.Args) < 2 {
		fmt.Println("Usage: simulate <command> [options]")
		fmt.Println("Commands: run -file sheet.toml [-steps N], repl [-file sheet.toml]")
		os.Exit(1)
	}

	// Storage-free engine: only Evaluate is used here
	engine := simulation.NewSimulationEngine(nil, nil, nil, nil)

	switch os.Args[1] {
	case "run":
		runCmd.Parse(os.Args[2:])
		if *runFile == "" {
			log.Fatal("run requires -file")
		}
		sheet, err := loadSheet(*runFile)
		if err != nil {
			log.Fatalf("Failed to load sheet: %v", err)
		}
		steps := cfg.Simulation.ClampSteps(firstPositive(*runSteps, sheet.Steps))
		sim, err := sheet.simulate(engine, steps)
		if err != nil {
			log.Fatalf("Failed to simulate %s: %v", sheet.Name, err)
		}
		if sheet.Name != "" {
			fmt.Printf("%s (%d steps)\n\n", sheet.Name, sim.Steps)
		}
		if err := writeTable(os.Stdout, sim); err != nil {
			log.Fatalf("Failed to write table: %v", err)
		}
	case "repl":
		replCmd.Parse(os.Args[2:])
		var sheet *sheetFile
		if *replFile != "" {
			s, err := loadSheet(*replFile)
			if err != nil {
				log.Fatalf("Failed to load sheet: %v", err)
			}
			sheet = s
		}
		os.Exit(runRepl(engine, sheet, *replSteps))
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
