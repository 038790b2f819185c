// Command bigio is a small inspection tool over the bigio library. It
// loads a column of int64 values from CSV into a BigArray, persists it to a
// snapshot file via BigArray's binary WriteTo/ReadFrom, and lets later
// invocations insert, remove, read, or report on that snapshot.
package main

import (
	"fmt"
	"os"

	"github.com/boljen/go-bitmap"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/kdavidov/bigio"
)

// valueRow is one CSV record: a single named integer column.
type valueRow struct {
	Value int64 `csv:"value"`
}

func loadSnapshot(path string, cfg bigio.Config) (*bigio.BigArray[int64], error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return bigio.NewBigArray[int64](cfg)
		}
		return nil, err
	}
	defer f.Close()

	ba, err := bigio.NewBigArray[int64](cfg)
	if err != nil {
		return nil, err
	}
	if _, err := ba.ReadFrom(f); err != nil {
		return nil, err
	}
	return ba, nil
}

func saveSnapshot(path string, ba *bigio.BigArray[int64]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = ba.WriteTo(f)
	return err
}

func configFromFlags(c *cli.Context) bigio.Config {
	cfg := bigio.DefaultConfig()
	if n := c.Int("default-block-size"); n > 0 {
		cfg.DefaultBlockSize = n
	}
	if n := c.Int("max-block-size"); n > 0 {
		cfg.MaxBlockSize = n
	}
	return cfg
}

func runID() string {
	return uuid.NewString()[:8]
}

func cmdInit(c *cli.Context) error {
	var verr *multierror.Error
	csvPath := c.String("csv")
	out := c.String("out")
	if csvPath == "" {
		verr = multierror.Append(verr, fmt.Errorf("--csv is required"))
	}
	if out == "" {
		verr = multierror.Append(verr, fmt.Errorf("--out is required"))
	}
	if err := verr.ErrorOrNil(); err != nil {
		return err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var rows []valueRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return err
	}

	seed := make([]int64, len(rows))
	for i, r := range rows {
		seed[i] = r.Value
	}

	ba, err := bigio.NewBigArrayFromSeed(seed, configFromFlags(c))
	if err != nil {
		return err
	}

	fmt.Printf("[%s] loaded %d rows from %s into %d blocks\n", runID(), ba.Count(), csvPath, ba.BlockCount())
	return saveSnapshot(out, ba)
}

func cmdInsert(c *cli.Context) error {
	snap := c.String("snapshot")
	ba, err := loadSnapshot(snap, configFromFlags(c))
	if err != nil {
		return err
	}
	if err := ba.Insert(c.Int("index"), c.Int64("value")); err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		out = snap
	}
	fmt.Printf("[%s] inserted at %d, count now %d\n", runID(), c.Int("index"), ba.Count())
	return saveSnapshot(out, ba)
}

func cmdRemove(c *cli.Context) error {
	snap := c.String("snapshot")
	ba, err := loadSnapshot(snap, configFromFlags(c))
	if err != nil {
		return err
	}
	if err := ba.Remove(c.Int("index")); err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		out = snap
	}
	fmt.Printf("[%s] removed %d, count now %d\n", runID(), c.Int("index"), ba.Count())
	return saveSnapshot(out, ba)
}

func cmdAt(c *cli.Context) error {
	ba, err := loadSnapshot(c.String("snapshot"), configFromFlags(c))
	if err != nil {
		return err
	}
	v, err := ba.At(c.Int("index"))
	if err != nil {
		return err
	}
	fmt.Printf("[%s] %d\n", runID(), v)
	return nil
}

func cmdRange(c *cli.Context) error {
	ba, err := loadSnapshot(c.String("snapshot"), configFromFlags(c))
	if err != nil {
		return err
	}
	vs, err := ba.Range(c.Int("index"), c.Int("count"))
	if err != nil {
		return err
	}
	fmt.Printf("[%s] %v\n", runID(), vs)
	return nil
}

// cmdStats reports block occupancy and bookmark table health. It builds a
// compact touched/empty bitmap over the chain rather than a []bool, since
// the thing being tracked is exactly one bit of information per block.
func cmdStats(c *cli.Context) error {
	ba, err := loadSnapshot(c.String("snapshot"), configFromFlags(c))
	if err != nil {
		return err
	}

	blocks := ba.BlockCount()
	touched := bitmap.New(blocks)
	nonEmpty := 0
	for i := 0; i < blocks; i++ {
		n, err := ba.BlockLen(i)
		if err != nil {
			return err
		}
		if n > 0 {
			touched.Set(i, true)
			nonEmpty++
		}
	}

	fmt.Printf("[%s] elements=%d blocks=%d non_empty_blocks=%d\n", runID(), ba.Count(), blocks, nonEmpty)
	for i := 0; i < blocks; i++ {
		if !touched.Get(i) {
			fmt.Printf("  block %d: empty\n", i)
		}
	}

	info := ba.BookmarkInfo()
	fmt.Printf("bookmarks: load=%.2f tombstones=%.2f recommend_grow=%v recommend_rehash=%v\n",
		info.LoadFactor, info.TombstoneFactor, info.RecommendGrow, info.RecommendRehash)
	return nil
}

func cmdBookmark(c *cli.Context) error {
	snap := c.String("snapshot")
	ba, err := loadSnapshot(snap, configFromFlags(c))
	if err != nil {
		return err
	}
	label := c.String("label")
	if idx := c.Int("index"); c.IsSet("index") {
		if err := ba.SetBookmark(label, idx); err != nil {
			return err
		}
		fmt.Printf("[%s] bookmarked %q at %d\n", runID(), label, idx)
		return saveSnapshot(snap, ba)
	}
	idx, ok := ba.ResolveBookmark(label)
	if !ok {
		return fmt.Errorf("no bookmark named %q", label)
	}
	fmt.Printf("[%s] %q -> %d\n", runID(), label, idx)
	return nil
}

func snapshotFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "snapshot", Required: true, Usage: "path to a snapshot file written by the init command"},
		&cli.IntFlag{Name: "default-block-size", Usage: "default block size for this invocation's array (snapshots do not store block sizes)"},
		&cli.IntFlag{Name: "max-block-size", Usage: "max block size for this invocation's array (snapshots do not store block sizes)"},
	}
}

func main() {
	app := &cli.App{
		Name:  "bigio",
		Usage: "inspect and mutate a chunked big-array snapshot",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "build a snapshot from a CSV file with a 'value' column",
				Flags: append(snapshotFlags()[1:], // no existing snapshot to require
					&cli.StringFlag{Name: "csv", Required: true},
					&cli.StringFlag{Name: "out", Required: true},
				),
				Action: cmdInit,
			},
			{
				Name:  "insert",
				Usage: "insert a value at a global index",
				Flags: append(snapshotFlags(),
					&cli.IntFlag{Name: "index", Required: true},
					&cli.Int64Flag{Name: "value", Required: true},
					&cli.StringFlag{Name: "out", Usage: "defaults to --snapshot"},
				),
				Action: cmdInsert,
			},
			{
				Name:  "remove",
				Usage: "remove the value at a global index",
				Flags: append(snapshotFlags(),
					&cli.IntFlag{Name: "index", Required: true},
					&cli.StringFlag{Name: "out", Usage: "defaults to --snapshot"},
				),
				Action: cmdRemove,
			},
			{
				Name:  "at",
				Usage: "print the value at a global index",
				Flags: append(snapshotFlags(),
					&cli.IntFlag{Name: "index", Required: true},
				),
				Action: cmdAt,
			},
			{
				Name:  "range",
				Usage: "print the values in [index, index+count)",
				Flags: append(snapshotFlags(),
					&cli.IntFlag{Name: "index", Required: true},
					&cli.IntFlag{Name: "count", Required: true},
				),
				Action: cmdRange,
			},
			{
				Name:  "stats",
				Usage: "report block occupancy and bookmark table health",
				Flags: snapshotFlags(),
				Action: cmdStats,
			},
			{
				Name:  "bookmark",
				Usage: "set or resolve a named bookmark (bookmarks are not saved in the snapshot, so a resolve never finds one set by an earlier invocation)",
				Flags: append(snapshotFlags(),
					&cli.StringFlag{Name: "label", Required: true},
					&cli.IntFlag{Name: "index", Usage: "set the bookmark to this index; omit to resolve instead"},
				),
				Action: cmdBookmark,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
