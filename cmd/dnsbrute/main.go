package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/Subzeroking/dnsbrute"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		domain     string
		wordlist   string
		nameserver string
		workers    int
		timeout    time.Duration
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:           "dnsbrute",
		Short:         "Enumerate subdomains through a domain's authoritative nameservers, filtering wildcard answers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))

			seed, err := seedResolver(nameserver)
			if err != nil {
				logger.Error("seed resolver", "err", err)
				return err
			}
			seed.Timeout = timeout
			seed.Log = logger

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			resolver, err := dnsbrute.Bootstrap(ctx, domain, seed)
			if err != nil {
				logger.Error("bootstrap failed", "domain", domain, "err", err)
				return err
			}
			resolver.OrderNameservers(ctx, time.Second)

			candidates := make(chan string)
			go func() {
				defer close(candidates)
				if err := feedWordlist(ctx, wordlist, domain, candidates); err != nil {
					logger.Error("reading wordlist", "path", wordlist, "err", err)
				}
			}()

			pipeline := dnsbrute.NewPipeline(resolver)
			pipeline.Workers = workers
			pipeline.Report = func(rec *dnsbrute.Record) {
				logger.Info("resolved", "record", rec)
				fmt.Println(rec)
			}
			return pipeline.Run(ctx, candidates)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&domain, "domain", "d", "", "target root domain")
	flags.StringVarP(&wordlist, "wordlist", "w", "", "file with one subdomain label per line")
	flags.StringVar(&nameserver, "nameserver", "", "seed nameserver address (default: from /etc/resolv.conf)")
	flags.IntVar(&workers, "workers", 8, "concurrent pipeline workers")
	flags.DurationVar(&timeout, "timeout", dnsbrute.DefaultTimeout, "per-query timeout")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("wordlist")
	return cmd
}

func seedResolver(nameserver string) (*dnsbrute.Resolver, error) {
	if nameserver == "" {
		return dnsbrute.NewSeed()
	}
	addr, err := netip.ParseAddr(nameserver)
	if err != nil {
		return nil, fmt.Errorf("invalid nameserver %q: %w", nameserver, err)
	}
	r := dnsbrute.New([]netip.Addr{addr})
	r.Recurse = true
	return r, nil
}

// feedWordlist composes label.domain candidates from the wordlist and
// sends them until EOF or cancellation. Blank lines and #-comments
// are skipped.
func feedWordlist(ctx context.Context, path, domain string, out chan<- string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		label := strings.TrimSpace(scanner.Text())
		if label == "" || strings.HasPrefix(label, "#") {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- label + "." + domain:
		}
	}
	return scanner.Err()
}
