// lumadb_inspect dumps the page headers of a LumaDB database file. It is a
// read-only debugging tool: it opens the file through the regular pager and
// prints one line per page slot, or the full detail of a single page.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/lumadb/lumadb/core/storage/page"
	"github.com/lumadb/lumadb/core/storage/pager"
	internaltelemetry "github.com/lumadb/lumadb/internal/telemetry"
	"github.com/lumadb/lumadb/pkg/logger"
	"github.com/lumadb/lumadb/pkg/telemetry"
)

func main() {
	dbPath := flag.String("db", "", "path to the database file (required)")
	pageID := flag.Int("page", -1, "page id to dump in detail, -1 to list all pages")
	utc := flag.Bool("utc", false, "interpret time values in page content as UTC")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	metricsPort := flag.Int("metrics-port", 0, "expose prometheus metrics on this port, 0 to disable")
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	zlog, err := logger.New(logger.Config{Level: *logLevel, Format: "console", OutputFile: "stderr"})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	tel, shutdown, err := telemetry.New(telemetry.Config{
		Enabled:        *metricsPort > 0,
		ServiceName:    "lumadb_inspect",
		PrometheusPort: *metricsPort,
	})
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			zlog.Warn(fmt.Sprintf("telemetry shutdown: %v", err))
		}
	}()

	metrics, err := internaltelemetry.NewPagerMetrics(tel.Meter)
	if err != nil {
		log.Fatalf("failed to register pager metrics: %v", err)
	}

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("cannot stat %s: %v", *dbPath, err)
	}

	p, err := pager.Open(pager.Config{Path: *dbPath, UTC: *utc}, zlog, metrics)
	if err != nil {
		log.Fatalf("cannot open %s: %v", *dbPath, err)
	}
	defer p.Close()

	hdr := p.Header()
	fmt.Printf("file:        %s\n", *dbPath)
	fmt.Printf("pages:       %d\n", uint32(hdr.LastPageID)+1)
	fmt.Printf("change id:   %d\n", hdr.ChangeID)
	fmt.Printf("user ver:    %d\n", hdr.UserVersion)
	fmt.Printf("free chain:  %s\n\n", formatPageID(hdr.FreeEmptyPageID))

	if *pageID >= 0 {
		pos, err := page.PositionInt(int32(*pageID))
		if err != nil {
			log.Fatalf("bad page id %d: %v", *pageID, err)
		}
		pg, err := p.ReadPage(page.PageID(*pageID))
		if err != nil {
			log.Fatalf("cannot read page %d: %v", *pageID, err)
		}
		dumpPage(pg, pos)
		return
	}

	fmt.Printf("%8s  %-14s  %8s  %8s  %6s  %6s  %s\n",
		"PAGE", "TYPE", "PREV", "NEXT", "ITEMS", "FREE", "TXN")
	for id := page.PageID(0); id <= hdr.LastPageID; id++ {
		pg, err := p.ReadPage(id)
		if err != nil {
			log.Fatalf("cannot read page %d: %v", id, err)
		}
		b := pg.Base()
		fmt.Printf("%8d  %-14s  %8s  %8s  %6d  %6d  %s\n",
			uint32(id), pg.Type(),
			formatPageID(b.GetPrevPageID()), formatPageID(b.GetNextPageID()),
			b.GetItemCount(), b.GetFreeBytes(),
			formatTxnID(b.GetTransactionID()))
	}
}

func dumpPage(pg page.Page, pos int64) {
	b := pg.Base()
	fmt.Printf("page id:     %d\n", uint32(b.GetPageID()))
	fmt.Printf("offset:      %d\n", pos)
	fmt.Printf("type:        %s\n", pg.Type())
	fmt.Printf("prev:        %s\n", formatPageID(b.GetPrevPageID()))
	fmt.Printf("next:        %s\n", formatPageID(b.GetNextPageID()))
	fmt.Printf("items:       %d\n", b.GetItemCount())
	fmt.Printf("free bytes:  %d\n", b.GetFreeBytes())
	fmt.Printf("txn:         %s\n", formatTxnID(b.GetTransactionID()))

	switch v := pg.(type) {
	case *page.HeaderPage:
		fmt.Printf("last page:   %d\n", uint32(v.LastPageID))
		fmt.Printf("free chain:  %s\n", formatPageID(v.FreeEmptyPageID))
	case *page.CollectionPage:
		fmt.Printf("collection:  %q\n", v.CollectionName)
		fmt.Printf("documents:   %d\n", v.DocumentCount)
		fmt.Printf("first data:  %s\n", formatPageID(v.FirstDataPage))
	case *page.DataPage:
		fmt.Printf("block:       %d bytes\n", len(v.Block()))
	case *page.ExtendPage:
		fmt.Printf("chunk:       %d bytes\n", len(v.Chunk()))
	case *page.IndexPage:
		fmt.Printf("nodes:       %d bytes\n", len(v.Nodes()))
	}
}

func formatPageID(id page.PageID) string {
	if id == page.EmptyPageID {
		return "-"
	}
	return fmt.Sprintf("%d", uint32(id))
}

func formatTxnID(id uuid.UUID) string {
	if id == uuid.Nil {
		return "-"
	}
	return id.String()
}
