// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/upload-assistant/torrentprep/core"
	"github.com/upload-assistant/torrentprep/lib/hashstore"
	"github.com/upload-assistant/torrentprep/lib/metainfogen"
	"github.com/upload-assistant/torrentprep/lib/torrentclient"
	"github.com/upload-assistant/torrentprep/lib/torrentmatch"
	"github.com/upload-assistant/torrentprep/lib/torrentprep"
	"github.com/upload-assistant/torrentprep/localdb"
	"github.com/upload-assistant/torrentprep/metrics"
	"github.com/upload-assistant/torrentprep/utils/closers"
	"github.com/upload-assistant/torrentprep/utils/configutil"
	"github.com/upload-assistant/torrentprep/utils/log"
	"github.com/upload-assistant/torrentprep/utils/memsize"

	"github.com/alecthomas/kingpin"
	"github.com/c2h5oh/datasize"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

const (
	prepareCmd = "prepare"
	hashesCmd  = "hashes"
)

// PrepareFlags defines the flags of the prepare command.
type PrepareFlags struct {
	Path           string
	ID             string
	Disc           bool
	KeepFolder     bool
	Clients        []string
	Hashes         []string
	Destinations   []string
	Source         string
	Comment        string
	MaxPieceLength string
	Label          string
	Category       string
	Tags           []string
	Include        []string
	Exclude        []string
}

// Flags defines seeder CLI flags.
type Flags struct {
	ConfigFile string
	Command    string
	Prepare    PrepareFlags
	ContentID  string
}

// ParseFlags parses seeder CLI flags from args.
func ParseFlags(args []string) *Flags {
	var flags Flags

	app := kingpin.New("seeder", "Prepares torrents for uploads and seeds them.")
	app.Flag("config", "Configuration file path").Required().StringVar(&flags.ConfigFile)

	prepare := app.Command(prepareCmd, "Reuse or build the torrent of some content and register it with clients")
	prepare.Arg("path", "Content file or directory").Required().StringVar(&flags.Prepare.Path)
	prepare.Flag("id", "Release name, defaults to the base name of path").StringVar(&flags.Prepare.ID)
	prepare.Flag("disc", "Content is a disc structure").BoolVar(&flags.Prepare.Disc)
	prepare.Flag("keep-folder", "Keep the content directory as the torrent root").BoolVar(&flags.Prepare.KeepFolder)
	prepare.Flag("client", "Client to register with, 'none' to skip").StringsVar(&flags.Prepare.Clients)
	prepare.Flag("hash", "Infohash of a torrent which may be reused").StringsVar(&flags.Prepare.Hashes)
	prepare.Flag("destination", "Label of a configured destination").Short('d').StringsVar(&flags.Prepare.Destinations)
	prepare.Flag("source", "Source field of the base torrent").StringVar(&flags.Prepare.Source)
	prepare.Flag("comment", "Comment of the base torrent").StringVar(&flags.Prepare.Comment)
	prepare.Flag("max-piece-length", "Upper bound of the piece length, e.g. 8MB").StringVar(&flags.Prepare.MaxPieceLength)
	prepare.Flag("label", "Client label overriding the profile").StringVar(&flags.Prepare.Label)
	prepare.Flag("category", "Client category overriding the profile").StringVar(&flags.Prepare.Category)
	prepare.Flag("tag", "Client tag, may be repeated").StringsVar(&flags.Prepare.Tags)
	prepare.Flag("include", "Glob of files to include, may be repeated").StringsVar(&flags.Prepare.Include)
	prepare.Flag("exclude", "Glob of files to exclude, may be repeated").StringsVar(&flags.Prepare.Exclude)

	hashes := app.Command(hashesCmd, "List the hashes and registrations known for a release")
	hashes.Arg("id", "Release name").Required().StringVar(&flags.ContentID)

	flags.Command = kingpin.MustParse(app.Parse(args))
	return &flags
}

// Run runs the seeder.
func Run(flags *Flags) {
	var config Config
	if err := configutil.Load(flags.ConfigFile, &config); err != nil {
		log.Fatalf("Error loading config: %s", err)
	}
	if config.ZapLogging.Encoding != "" {
		zlog := log.ConfigureLogger(config.ZapLogging)
		defer zlog.Sync()
	}

	stats, closer, err := metrics.New(config.Metrics, config.Env)
	if err != nil {
		log.Fatalf("Failed to init metrics: %s", err)
	}
	defer closers.Close(closer)

	metrics.EmitVersion(stats)

	db, err := localdb.New(config.LocalDB)
	if err != nil {
		log.Fatalf("Error creating local db: %s", err)
	}
	defer closers.Close(db)
	store := hashstore.New(db)

	switch flags.Command {
	case hashesCmd:
		if err := printKnown(os.Stdout, store, flags.ContentID); err != nil {
			log.Fatalf("Error listing known hashes: %s", err)
		}
	case prepareCmd:
		if err := runPrepare(config, flags.Prepare, store, stats); err != nil {
			log.Fatalf("Error preparing %s: %s", flags.Prepare.Path, err)
		}
	}
}

func runPrepare(config Config, flags PrepareFlags, store *hashstore.Store, stats tally.Scope) error {
	report, err := log.New(config.Report, map[string]interface{}{"component": "seeder"})
	if err != nil {
		return fmt.Errorf("report logger: %s", err)
	}
	defer report.Sync()

	clients, targets, err := newClients(config.Clients)
	if err != nil {
		return err
	}
	generator, err := metainfogen.New(config.MetaInfoGen, stats)
	if err != nil {
		return fmt.Errorf("metainfo generator: %s", err)
	}
	preparer := torrentprep.New(
		config.TorrentPrep,
		generator,
		torrentmatch.New(config.Matcher, stats),
		torrentclient.NewRegistrar(clients, stats),
		targets,
		store,
		stats)

	content, err := core.ScanContent(flags.Path, flags.ID, core.ContentOptions{
		IsDisc:     flags.Disc,
		KeepFolder: flags.KeepFolder,
	})
	if err != nil {
		return fmt.Errorf("scan content: %s", err)
	}
	req, err := buildRequest(config, flags, content)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	res, prepErr := preparer.Prepare(ctx, req)
	if res == nil {
		return prepErr
	}
	report.Info("prepared",
		zap.String("content", content.ID),
		zap.String("infohash", res.MetaInfo.InfoHash().Hex()),
		zap.Bool("reused", res.Reused),
		zap.String("artifact", res.ArtifactPath),
		zap.Int("registrations", len(res.Handles)),
		zap.String("size", memsize.Format(uint64(content.TotalSize))))

	printResult(os.Stdout, res)
	return prepErr
}

// newClients creates the clients of every profile along with their reuse
// lookup targets.
func newClients(configs map[string]torrentclient.Config) (
	map[string]torrentclient.Client, map[string]torrentmatch.Target, error) {

	clients := make(map[string]torrentclient.Client)
	targets := make(map[string]torrentmatch.Target)
	for name, c := range configs {
		client, err := torrentclient.New(name, c)
		if err != nil {
			return nil, nil, err
		}
		clients[name] = client
		targets[name] = torrentclient.Target(c, client)
	}
	return clients, targets, nil
}

// buildRequest turns flags into a preparation request for content.
func buildRequest(
	config Config, flags PrepareFlags, content *core.ContentDescriptor) (torrentprep.Request, error) {

	req := torrentprep.Request{
		Content: content,
		Flags: metainfogen.Flags{
			Private:      config.Private,
			Source:       flags.Source,
			Comment:      flags.Comment,
			IncludeGlobs: flags.Include,
			ExcludeGlobs: flags.Exclude,
		},
		Clients:  flags.Clients,
		Hashes:   flags.Hashes,
		Label:    flags.Label,
		Category: flags.Category,
		Tags:     flags.Tags,
	}
	if flags.MaxPieceLength != "" {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(flags.MaxPieceLength)); err != nil {
			return req, fmt.Errorf("max piece length: %s", err)
		}
		req.Flags.MaxPieceLength = int64(size.Bytes())
	}
	for _, label := range flags.Destinations {
		d, ok := config.Destinations[label]
		if !ok {
			return req, fmt.Errorf("unknown destination %q", label)
		}
		req.Destinations = append(req.Destinations, torrentprep.Destination{
			Label: label,
			Destination: core.Destination{
				Trackers: d.Trackers,
				Source:   d.Source,
				Comment:  d.Comment,
			},
		})
	}
	return req, nil
}

func printResult(w io.Writer, res *torrentprep.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	mode := "built"
	if res.Reused {
		mode = "reused " + res.Match.Hash
	}
	fmt.Fprintf(tw, "infohash\t%s\n", res.MetaInfo.InfoHash().Hex())
	fmt.Fprintf(tw, "torrent\t%s\n", mode)
	fmt.Fprintf(tw, "artifact\t%s\n", res.ArtifactPath)
	var labels []string
	for l := range res.Artifacts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Fprintf(tw, "artifact[%s]\t%s\n", l, res.Artifacts[l])
	}
	for _, h := range res.Handles {
		fmt.Fprintf(tw, "registered\t%s\n", h)
	}
	tw.Flush()
}

func printKnown(w io.Writer, store *hashstore.Store, contentID string) error {
	hashes, err := store.Hashes(contentID)
	if err != nil {
		return err
	}
	handles, err := store.Registrations(contentID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, h := range hashes {
		fmt.Fprintf(tw, "hash\t%s\n", h.Hex())
	}
	for _, h := range handles {
		fmt.Fprintf(tw, "registered\t%s\n", h)
	}
	return tw.Flush()
}
