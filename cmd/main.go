package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/flow-platform/flowens"
	"github.com/flow-platform/flowens/common"
)

func main() {
	app := &cli.App{
		Name: "flowens",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db_dir", Value: "./data/bolt", Usage: "bolt db dir path", EnvVars: []string{"DB_DIR"}},
			&cli.StringFlag{Name: "mysql", Value: "root@tcp(127.0.0.1:3306)/flowens?charset=utf8mb4&parseTime=True&loc=Local", Usage: "mysql dsn", EnvVars: []string{"MYSQL"}},
			&cli.StringFlag{Name: "sqlite_dir", Value: "./data/sqlite", Usage: "sqlite db dir path", EnvVars: []string{"SQLITE_DIR"}},
			&cli.BoolFlag{Name: "use_sqlite", Value: false, Usage: "run with sqlite instead of mysql", EnvVars: []string{"USE_SQLITE"}},
			&cli.StringFlag{Name: "key_path", Value: "./data/keyfile", Usage: "hex private key file path", EnvVars: []string{"KEY_PATH"}},
			&cli.StringFlag{Name: "rpc_url", Value: "", Usage: "ethereum rpc url, defaults per chain", EnvVars: []string{"RPC_URL"}},
			&cli.Int64Flag{Name: "chain_id", Value: 11155111, Usage: "ethereum chain id", EnvVars: []string{"CHAIN_ID"}},
			&cli.BoolFlag{Name: "s3_flag", Value: false, Usage: "run with s3 store", EnvVars: []string{"S3_FLAG"}},
			&cli.StringFlag{Name: "s3_acc_key", Value: "", Usage: "s3 access key", EnvVars: []string{"S3_ACC_KEY"}},
			&cli.StringFlag{Name: "s3_secret_key", Value: "", Usage: "s3 secret key", EnvVars: []string{"S3_SECRET_KEY"}},
			&cli.StringFlag{Name: "s3_prefix", Value: "flowens", Usage: "s3 bucket name prefix", EnvVars: []string{"S3_PREFIX"}},
			&cli.StringFlag{Name: "s3_region", Value: "ap-northeast-1", Usage: "s3 bucket region", EnvVars: []string{"S3_REGION"}},
			&cli.StringFlag{Name: "s3_endpoint", Value: "", Usage: "s3 compatible endpoint", EnvVars: []string{"S3_ENDPOINT"}},
			&cli.StringFlag{Name: "kafka_uri", Value: "127.0.0.1:9092", Usage: "kafka broker uri", EnvVars: []string{"KAFKA_URI"}},
			&cli.BoolFlag{Name: "use_kafka", Value: false, Usage: "publish registration and watch events to kafka", EnvVars: []string{"USE_KAFKA"}},
			&cli.StringSliceFlag{Name: "llm_urls", Usage: "chat completion endpoints, first is primary", EnvVars: []string{"LLM_URLS"}},
			&cli.StringFlag{Name: "llm_api_key", Value: "", EnvVars: []string{"LLM_API_KEY"}},
			&cli.StringFlag{Name: "llm_model", Value: "gpt-4o-mini", EnvVars: []string{"LLM_MODEL"}},

			&cli.StringFlag{Name: "port", Value: ":8080", EnvVars: []string{"PORT"}},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	common.NewMetricServer()

	s := flowens.New(
		c.String("db_dir"), c.String("mysql"), c.String("sqlite_dir"), c.Bool("use_sqlite"),
		c.String("key_path"), c.String("rpc_url"), c.Int64("chain_id"),
		c.Bool("s3_flag"), c.String("s3_acc_key"), c.String("s3_secret_key"), c.String("s3_prefix"), c.String("s3_region"), c.String("s3_endpoint"),
		c.String("kafka_uri"), c.Bool("use_kafka"),
		c.StringSlice("llm_urls"), c.String("llm_api_key"), c.String("llm_model"),
	)
	s.Run(c.String("port"))

	<-signals
	s.Close()

	return nil
}
