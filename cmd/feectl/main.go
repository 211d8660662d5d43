package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/config"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/core"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/ledger"
	"github.com/alexbco/bot-whatsapp-contabilidad/internal/storage"
)

// feectl is the operator's admin tool for the recurring fee configuration:
//
//	feectl -customer "juan perez" -fee 50
//	feectl -list
func main() {
	_ = godotenv.Load()

	var (
		customer = flag.String("customer", "", "customer name")
		fee      = flag.String("fee", "", "monthly fee in euros, e.g. 50 or 48,50 (0 clears the fee)")
		list     = flag.Bool("list", false, "list customers with a configured fee")
	)
	flag.Parse()

	cfg := config.Load()
	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case *list:
		customers, err := store.ListCustomersWithFee(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "list customers: %v\n", err)
			os.Exit(1)
		}
		if len(customers) == 0 {
			fmt.Println("no customers with a configured fee")
			return
		}
		for _, c := range customers {
			fmt.Printf("%-30s %s\n", c.Name, c.MonthlyFee.Euros())
		}

	case *customer != "" && *fee != "":
		var cents int64
		if *fee != "0" {
			cents, err = core.ParseAmountCents(*fee)
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid fee %q: %v\n", *fee, err)
				os.Exit(1)
			}
		}

		loc, err := cfg.Location()
		if err != nil {
			fmt.Fprintf(os.Stderr, "load timezone: %v\n", err)
			os.Exit(1)
		}

		svc := ledger.NewService(store, nil, loc, nil)
		c, err := svc.SetMonthlyFee(ctx, *customer, cents)
		if err != nil {
			fmt.Fprintf(os.Stderr, "set fee: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: monthly fee set to %s\n", c.Name, c.MonthlyFee.Euros())

	default:
		flag.Usage()
		os.Exit(2)
	}
}
