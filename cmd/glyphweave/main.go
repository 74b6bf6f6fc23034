// Command glyphweave is a small demo CLI around the library: publish text
// files as scrolls, resume interrupted publications, build the feed and read
// scrolls back. It runs against an in-process loopback ledger persisted next
// to the weave data, so the full publish/read cycle works offline.
package main

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	glyphweave "github.com/glyphweave/glyphweave"
	"github.com/glyphweave/glyphweave/internal/keyValStore"
	"github.com/glyphweave/glyphweave/pkg/ledger"
	"github.com/glyphweave/glyphweave/pkg/logging"
	"github.com/glyphweave/glyphweave/pkg/pipeline"
	"github.com/glyphweave/glyphweave/pkg/reconstruct"
	"github.com/glyphweave/glyphweave/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: glyphweave <command> [flags]

commands:
  publish  -data DIR -author NAME -title TITLE -file FILE
  resume   -data DIR -author NAME -id CONTENT_ID
  pending  -data DIR -author NAME
  status   -data DIR -author NAME -id CONTENT_ID
  list     -data DIR -author NAME
  read     -data DIR -author NAME -id SCROLL_ID
  feed     -data DIR -author NAME [-per-author N] [-total N]`)
}

type cliSigner struct {
	author string
}

func (s *cliSigner) PublicIdentity() string {
	sum := sha512.Sum512([]byte("glyphweave-author:" + s.author))
	return hex.EncodeToString(sum[:16])
}

func (s *cliSigner) Sign(data []byte) ([]byte, error) {
	sum := sha512.Sum512(append([]byte(s.author+":"), data...))
	return sum[:], nil
}

func run(command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	dataDir := fs.String("data", "glyphweave-data", "data directory")
	author := fs.String("author", "", "author display name")
	title := fs.String("title", "", "publication title")
	file := fs.String("file", "", "text file to publish")
	id := fs.String("id", "", "content or scroll id (hex)")
	perAuthor := fs.Int("per-author", 5, "max posts per author in the feed")
	total := fs.Int("total", 50, "max posts in the feed")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *author == "" {
		return fmt.Errorf("-author is required")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := logging.New(level)

	// The loopback ledger gets its own store so its transactions survive
	// restarts independently of the weave data.
	ledgerKV, err := openLedgerStore(*dataDir, log)
	if err != nil {
		return err
	}
	defer ledgerKV.Close()
	loop := ledger.NewLoopback(ledgerKV, 1024)

	weave, err := glyphweave.New(glyphweave.Config{
		Paths:  []string{filepath.Join(*dataDir, "weave")},
		Logger: log,
	}, glyphweave.Collaborators{
		Submitter: loop,
		Reader:    loop,
		Signer:    &cliSigner{author: *author},
		Username:  *author,
	})
	if err != nil {
		return err
	}
	defer weave.Close()

	ctx := context.Background()

	switch command {
	case "publish":
		return cmdPublish(ctx, weave, *title, *file)
	case "resume":
		return cmdResume(ctx, weave, *id)
	case "pending":
		return cmdPending(weave)
	case "status":
		return cmdStatus(weave, *id)
	case "list":
		return cmdList(weave)
	case "read":
		return cmdRead(ctx, weave, *id)
	case "feed":
		return cmdFeed(ctx, weave, *perAuthor, *total)
	}
	usage()
	return fmt.Errorf("unknown command %q", command)
}

func openLedgerStore(dataDir string, log *slog.Logger) (*keyValStore.KeyValStore, error) {
	path := filepath.Join(dataDir, "ledger")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	return keyValStore.NewKeyValStore(keyValStore.StoreConfig{
		Paths:            []string{path},
		MinimumFreeSpace: 1,
		Logger:           log,
	})
}

func progressPrinter(p pipeline.Progress) {
	if p.Err != nil {
		fmt.Printf("  [%s] %d/%d glyphs, error: %v\n", p.Stage, p.GlyphsDone, p.TotalGlyphs, p.Err)
		return
	}
	fmt.Printf("  [%s] %d/%d glyphs published\n", p.Stage, p.Succeeded, p.TotalGlyphs)
}

func cmdPublish(ctx context.Context, weave *glyphweave.Weave, title, file string) error {
	if title == "" || file == "" {
		return fmt.Errorf("-title and -file are required")
	}
	text, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	result, err := weave.Publish(ctx, title, string(text), progressPrinter)
	if err != nil {
		if result != nil {
			fmt.Printf("publication stopped at %d/%d glyphs; resume with -id %s\n",
				result.Succeeded, result.TotalGlyphs, result.ContentID)
		}
		return err
	}

	fmt.Printf("published %q as scroll %s (%d glyphs)\n", title, result.ContentID, result.TotalGlyphs)
	if result.ManifestErr != nil {
		fmt.Printf("manifest pending, retry with: glyphweave status -id %s\n", result.ContentID)
	}
	return nil
}

func cmdResume(ctx context.Context, weave *glyphweave.Weave, id string) error {
	contentID, err := types.HashFromHex(id)
	if err != nil {
		return err
	}
	result, err := weave.Resume(ctx, contentID, progressPrinter)
	if err != nil {
		return err
	}
	fmt.Printf("resumed publication finished in stage %s (%d/%d glyphs)\n",
		result.Stage, result.Succeeded, result.TotalGlyphs)
	return nil
}

func cmdPending(weave *glyphweave.Weave) error {
	ids, err := weave.PendingPublications()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no pending publications")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func cmdStatus(weave *glyphweave.Weave, id string) error {
	contentID, err := types.HashFromHex(id)
	if err != nil {
		return err
	}
	st, err := weave.GetStatus(contentID)
	if err != nil {
		return err
	}
	fmt.Printf("stage: %s  active: %v  glyphs: %d/%d published, %d failed\n",
		st.Stage, st.Active, st.Succeeded, st.TotalGlyphs, st.Failed)
	for _, txID := range st.TxIDs {
		fmt.Println("  tx:", txID)
	}
	return nil
}

func cmdList(weave *glyphweave.Weave) error {
	manifests, err := weave.ListScrolls()
	if err != nil {
		return err
	}
	for _, m := range manifests {
		fmt.Printf("%s  %q by %s (%d chunks)\n", m.ScrollID, m.Title, m.Author, m.TotalChunks)
	}
	return nil
}

func cmdRead(ctx context.Context, weave *glyphweave.Weave, id string) error {
	scrollID, err := types.HashFromHex(id)
	if err != nil {
		return err
	}
	text, err := weave.LoadScroll(ctx, scrollID, reconstruct.Callbacks{
		OnProgress: func(loaded, total uint32, percent float64) {
			fmt.Fprintf(os.Stderr, "\rloading %d/%d (%.0f%%)", loaded, total, percent)
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)
	fmt.Println(text)
	return nil
}

func cmdFeed(ctx context.Context, weave *glyphweave.Weave, perAuthor, total int) error {
	posts, err := weave.BuildFeed(ctx, perAuthor, total, false)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Println("feed is empty")
		return nil
	}
	for _, post := range posts {
		fmt.Printf("%s  %s\n%s\n\n", post.Timestamp.Format("2006-01-02 15:04"), post.Author, post.Content)
	}
	return nil
}
