package main

import (
	"fmt"
	"os"

	"github.com/seismo-tools/hazengine/pkg/runtime/terminal"
	"github.com/seismo-tools/hazengine/pkg/services/calc"
	"github.com/seismo-tools/hazengine/pkg/services/calc/classical"
	"github.com/seismo-tools/hazengine/pkg/services/calc/scenario"
	"github.com/seismo-tools/hazengine/pkg/services/calc/scenariorisk"
)

func main() {
	registry := calc.NewRegistry()
	factories := map[string]calc.CalculatorFactory{
		"scenario":      scenario.CalculatorFactory,
		"classical":     classical.CalculatorFactory,
		"scenario_risk": scenariorisk.CalculatorFactory,
	}
	for mode, factory := range factories {
		if err := registry.Register(mode, factory); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	cli := terminal.NewCLI(terminal.Options{
		Registry: registry,
		Output:   os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
