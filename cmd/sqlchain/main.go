// Command sqlchain runs one configured statement through the configured
// interceptor chain and prints the result as JSON.
//
//	sqlchain -config sqlchain.yaml -exec users.byAge -param '{"age": 30}' -limit 10
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/shrek82/sqlchain/config"
	"github.com/shrek82/sqlchain/core"
	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/middleware"
	"github.com/shrek82/sqlchain/plugin"
)

var (
	configPath = flag.String("config", "", "YAML config file; empty reads SQLCHAIN_* environment variables only")
	statement  = flag.String("exec", "", "id of the statement to run")
	paramJSON  = flag.String("param", "", "parameter object as JSON")
	offset     = flag.Int("offset", 0, "rows to skip")
	limit      = flag.Int("limit", 0, "maximum rows to return, 0 for all")
	timeout    = flag.Duration("timeout", 30*time.Second, "overall timeout")
	list       = flag.Bool("list", false, "list statements and interceptor names, then exit")
	audit      = flag.String("audit-amqp", "", "publish audit events to this AMQP URL")
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := core.OpenConfig(cfg)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer db.Close()

	if *audit != "" {
		pub, err := middleware.NewAMQPPublisher(*audit, "sqlchain.audit", "statement.update")
		if err != nil {
			log.Fatalf("audit: %v", err)
		}
		defer pub.Close()
		a := middleware.NewAudit(pub)
		a.SetLogger(db.Logger())
		if err := db.Use(a); err != nil {
			log.Fatalf("audit: %v", err)
		}
	}

	if *list {
		fmt.Println("statements:")
		for _, id := range db.StatementIDs() {
			fmt.Println("  " + id)
		}
		fmt.Println("interceptors:", strings.Join(plugin.Names(), ", "))
		return
	}
	if *statement == "" {
		fmt.Fprintln(os.Stderr, "usage: sqlchain [-config file] -exec <statement id> [-param json] [-offset n] [-limit n]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	var param any
	if *paramJSON != "" {
		if err := json.Unmarshal([]byte(*paramJSON), &param); err != nil {
			log.Fatalf("param: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	out, err := run(ctx, db, *statement, param, executor.NewRowBounds(*offset, *limit))
	if err != nil {
		log.Fatalf("%s: %v", *statement, err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode: %v", err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.Load(path)
}

// run executes a select in an autocommit session and anything else in a
// transaction.
func run(ctx context.Context, db *core.DB, id string, param any, bounds executor.RowBounds) (any, error) {
	ms, err := db.Statement(id)
	if err != nil {
		return nil, err
	}
	if ms.Command == mapping.Select {
		s, err := db.NewSession()
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.SelectRows(ctx, id, param, bounds)
	}

	var affected int64
	err = db.Transaction(ctx, func(s *core.Session) error {
		var err error
		affected, err = s.Update(ctx, id, param)
		return err
	})
	return map[string]int64{"affected": affected}, err
}
