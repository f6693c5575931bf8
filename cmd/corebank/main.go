package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ruralpay/corebank/internal/access"
	"github.com/ruralpay/corebank/internal/config"
	"github.com/ruralpay/corebank/internal/database"
	"github.com/ruralpay/corebank/internal/engine"
	"github.com/ruralpay/corebank/internal/ledger"
	"github.com/ruralpay/corebank/internal/models"
	"github.com/ruralpay/corebank/internal/store"
)

func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.BindEnv("database.enabled", "DATABASE_ENABLED")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	cfg := config.Load()

	var (
		accounts store.AccountStore
		records  ledger.Ledger
	)
	if viper.GetBool("database.enabled") {
		db := database.InitDatabase()
		defer db.Close()
		accounts = store.NewPostgresStore(db)
		records = ledger.NewPostgresLedger(db)
	} else {
		log.Println("[MAIN] running with in-memory stores")
		accounts = store.NewMemoryStore()
		records = ledger.NewMemoryLedger()
	}

	var sessions access.SessionStore
	if redisClient := database.InitRedis(); redisClient != nil {
		defer redisClient.Close()
		sessions = access.NewRedisSessionStore(redisClient)
	} else {
		sessions = access.NewMemorySessionStore()
	}

	controller := access.NewController(access.Config{
		SessionTimeout:  cfg.SessionTimeout,
		LockoutDuration: cfg.LockoutDuration,
		MaxAttempts:     cfg.MaxLoginAttempts,
	}, sessions)

	core := engine.New(accounts, records, controller, cfg.LockWait)

	log.Println("[MAIN] transaction core ready")
	runConsole(context.Background(), core, accounts, cfg.OverdraftLimit)
}

// runConsole drives the core from stdin, one command per line. It is the
// teller-facing surface of the simulator.
func runConsole(ctx context.Context, core *engine.Engine, accounts store.AccountStore, overdraftLimit decimal.Decimal) {
	principal := ""
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("corebank console; type 'help' for commands")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			fmt.Println("login <principal> <password>   open <number> <CHECKING|SAVINGS|CARD|CHECK> <owner> <amount>")
			fmt.Println("deposit <number> <amount>      withdraw <number> <amount>")
			fmt.Println("transfer <from> <to> <amount>  balance <number>")
			fmt.Println("history <number>               freeze|unfreeze <number>")
			fmt.Println("logout                         quit")
		case "quit", "exit":
			return
		case "login":
			if len(fields) != 3 {
				fmt.Println("usage: login <principal> <password>")
				continue
			}
			// The console trusts any non-empty password; credential checks
			// belong to the identity service in front of this core.
			res := core.Login(ctx, fields[1], fields[2] != "")
			if !res.Granted {
				reason := string(res.Reason)
				if reason == "" {
					reason = "invalid credentials"
				}
				fmt.Printf("refused: %s", reason)
				if res.RetryAfter > 0 {
					fmt.Printf(" (retry in %s)", res.RetryAfter)
				}
				fmt.Println()
				continue
			}
			principal = fields[1]
			fmt.Printf("welcome, %s\n", principal)
		case "logout":
			if principal != "" {
				core.Logout(ctx, principal)
				principal = ""
			}
			fmt.Println("logged out")
		case "open":
			if len(fields) != 5 {
				fmt.Println("usage: open <number> <class> <owner> <amount>")
				continue
			}
			amount, err := decimal.NewFromString(fields[4])
			if err != nil {
				fmt.Printf("bad amount: %v\n", err)
				continue
			}
			class := models.AccountClass(strings.ToUpper(fields[2]))
			limit := decimal.Zero
			if models.PolicyFor(class, overdraftLimit).AllowOverdraft {
				limit = overdraftLimit
			}
			acct, err := models.NewAccount(fields[1], class, fields[3], amount, limit)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			if err := accounts.Save(ctx, acct); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("opened %s (%s) with %s\n", acct.Number, acct.Class, acct.Balance.StringFixed(2))
		case "deposit", "withdraw":
			if len(fields) != 3 {
				fmt.Printf("usage: %s <number> <amount>\n", fields[0])
				continue
			}
			req := engine.SubmitRequest{Principal: principal}
			amount, err := decimal.NewFromString(fields[2])
			if err != nil {
				fmt.Printf("bad amount: %v\n", err)
				continue
			}
			req.Amount = amount
			if fields[0] == "deposit" {
				req.Kind = models.Deposit
				req.TargetAccount = fields[1]
			} else {
				req.Kind = models.Withdraw
				req.SourceAccount = fields[1]
			}
			printResult(core.Submit(ctx, req))
		case "transfer":
			if len(fields) != 4 {
				fmt.Println("usage: transfer <from> <to> <amount>")
				continue
			}
			amount, err := decimal.NewFromString(fields[3])
			if err != nil {
				fmt.Printf("bad amount: %v\n", err)
				continue
			}
			printResult(core.Submit(ctx, engine.SubmitRequest{
				Principal:     principal,
				Kind:          models.Transfer,
				Amount:        amount,
				SourceAccount: fields[1],
				TargetAccount: fields[2],
			}))
		case "balance":
			if len(fields) != 2 {
				fmt.Println("usage: balance <number>")
				continue
			}
			balance, err := core.Balance(ctx, fields[1])
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println(balance.StringFixed(2))
		case "history":
			if len(fields) != 2 {
				fmt.Println("usage: history <number>")
				continue
			}
			records, err := core.History(ctx, fields[1])
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			for _, rec := range records {
				fmt.Printf("%s  %-8s %10s  %s\n", rec.TransactionID, rec.Kind, rec.Amount, rec.Status)
			}
		case "freeze", "unfreeze":
			if len(fields) != 2 {
				fmt.Printf("usage: %s <number>\n", fields[0])
				continue
			}
			op := core.Freeze
			if fields[0] == "unfreeze" {
				op = core.Unfreeze
			}
			if err := op(ctx, fields[1]); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println("ok")
		default:
			fmt.Printf("unknown command %q; type 'help'\n", fields[0])
		}
	}
}

func printResult(res *engine.TransactionResult, err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("%s %s", res.TransactionID, res.Status)
	if res.Reason != "" {
		fmt.Printf(" (%s)", res.Reason)
	}
	fmt.Println()
	for number, balance := range res.Balances {
		fmt.Printf("  %s: %s\n", number, balance.StringFixed(2))
	}
}
