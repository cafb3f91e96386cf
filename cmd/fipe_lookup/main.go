package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"autovitrine/precos/internal/filter"
	"autovitrine/precos/internal/logging"
	"autovitrine/precos/internal/providers"
)

// Walks the brand > model > year > version cascade against a running server
// and prints the resulting view. Fields left empty stop the walk there, so
// the printed options are the choices for the next field.
//
//	fipe_lookup -marca honda -modelo honda-civic -ano 2017 -versao "LXR 2.0"
func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the pricing service")
	vehicleType := flag.String("veiculo", "", "carros, motos or caminhoes")
	brand := flag.String("marca", "", "brand code")
	model := flag.String("modelo", "", "model code")
	year := flag.String("ano", "", "model year")
	version := flag.String("versao", "", "version name or price code")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	if err := logging.Init("development"); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logging.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	m := filter.NewMachine(providers.NewFipeAPIProvider(*server, *vehicleType))
	if err := m.Reset(ctx); err != nil {
		logging.Fatal("Failed to load brands", "server", *server, "error", err.Error())
	}

	steps := []struct {
		field filter.Field
		value string
	}{
		{filter.FieldBrand, *brand},
		{filter.FieldModel, *model},
		{filter.FieldYear, *year},
		{filter.FieldVersion, *version},
	}
	for _, s := range steps {
		if s.value == "" {
			break
		}
		if err := m.SetField(ctx, s.field, s.value); err != nil {
			logging.Error("Lookup stopped", "field", s.field.String(), "value", s.value, "error", err.Error())
			break
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.View()); err != nil {
		log.Fatalf("encode view: %v", err)
	}
}
