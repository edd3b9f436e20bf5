package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dosco/stateful-abac/internal/config"
	"github.com/dosco/stateful-abac/internal/logging"
	"github.com/dosco/stateful-abac/internal/manifest"
	"github.com/dosco/stateful-abac/internal/store"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var outPath string
	var toStdout bool
	var indent int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Export a realm's current Rule Store state as a manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(configFile, outPath, toStdout, indent)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file path (defaults to <realm>.yaml, or <realm>.json for json output)")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "write the manifest to stdout instead of a file")
	cmd.Flags().IntVar(&indent, "indent", 2, "indent width for JSON output")
	return cmd
}

func runGenerate(configFile, outPath string, toStdout bool, indent int) error {
	cfg, err := config.ReadInConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Manifest.Realm == "" {
		return fmt.Errorf("manifest.realm must be set in %s", configFile)
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.ShouldUseJSONLogs()})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := store.Open(ctx, poolConfigFrom(cfg), log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	exporter := manifest.NewExporter(store.NewCatalogRepo(db), store.NewResourceRepo(db), store.NewACLRepo(db))
	doc, err := exporter.Export(ctx, cfg.Manifest.Realm)
	if err != nil {
		return fmt.Errorf("export manifest: %w", err)
	}

	var out []byte
	switch cfg.Manifest.OutputFormat {
	case "json":
		out, err = json.MarshalIndent(doc, "", spaces(indent))
	default:
		out, err = manifest.EncodeYAML(doc)
	}
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if toStdout {
		_, err = os.Stdout.Write(out)
		return err
	}

	if outPath == "" {
		ext := "yaml"
		if cfg.Manifest.OutputFormat == "json" {
			ext = "json"
		}
		outPath = cfg.Manifest.Realm + "." + ext
	}
	return os.WriteFile(outPath, out, 0o644)
}

func poolConfigFrom(cfg *config.Config) store.PoolConfig {
	return store.PoolConfig{
		ConnString:      cfg.DB.ConnString,
		Host:            cfg.DB.Host,
		Port:            int(cfg.DB.Port),
		User:            cfg.DB.User,
		Password:        cfg.DB.Password,
		DBName:          cfg.DB.DBName,
		AppName:         "abacctl",
		PoolSize:        cfg.DB.PoolSize,
		MaxConnections:  cfg.DB.PoolSize,
		MaxConnIdleTime: cfg.DB.MaxConnIdleTime,
		MaxConnLifeTime: cfg.DB.MaxConnLifeTime,
		EnableTLS:       cfg.DB.EnableTLS,
		ServerName:      cfg.DB.ServerName,
		ServerCert:      cfg.DB.ServerCert,
		ClientCert:      cfg.DB.ClientCert,
		ClientKey:       cfg.DB.ClientKey,
	}
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	return string(out)
}
