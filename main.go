package main

import (
	"os"
	"time"

	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/httpkit/timeout"
	"github.com/itchio/ox"
	"github.com/itchio/warden/comm"
	"github.com/itchio/warden/database"
	"github.com/itchio/warden/database/models"
	"github.com/itchio/warden/harness"
	"github.com/itchio/warden/installer"
	"github.com/itchio/warden/pipeline"
	"github.com/itchio/warden/updater"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	version = "head" // set by command-line on CI release builds
	app     = kingpin.New("warden", "Keeps your itch.io library installed and up to date")

	loginCmd  = app.Command("login", "Store an itch.io API key to act on behalf of its user")
	checkCmd  = app.Command("check", "Check installed items for updates, queuing what can be queued")
	queueCmd  = app.Command("queue", "Queue a fresh install of a game")
	driveCmd  = app.Command("drive", "Process the pending install queue, then exit")
	daemonCmd = app.Command("daemon", "Run the update scheduler and the install queue until killed")
)

var appArgs = struct {
	dbPath  *string
	json    *bool
	quiet   *bool
	verbose *bool
}{
	app.Flag("db", "Path to the local database").Default("warden.db").String(),
	app.Flag("json", "Enable machine-readable JSON-lines output").Short('j').Bool(),
	app.Flag("quiet", "Hide extra info").Short('q').Bool(),
	app.Flag("verbose", "Display as much extra info as possible").Short('v').Bool(),
}

var loginArgs = struct {
	apiKey *string
}{
	loginCmd.Arg("api-key", "An itch.io API key, see https://itch.io/user/settings/api-keys").Required().String(),
}

var checkArgs = struct {
	cave *string
}{
	checkCmd.Flag("cave", "Only check this cave instead of all of them").String(),
}

var queueArgs = struct {
	gameID        *int64
	installFolder *string
}{
	queueCmd.Arg("game", "Identifier of the game to install").Required().Int64(),
	queueCmd.Flag("install-folder", "Where to install the game").Required().String(),
}

func must(err error) {
	if err != nil {
		comm.Dief("%+v", err)
	}
}

func main() {
	app.HelpFlag.Short('h')
	app.Version(version)
	app.VersionFlag.Short('V')

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	comm.Configure(*appArgs.quiet, *appArgs.verbose, *appArgs.json)

	db := openDatabase(*appArgs.dbPath)

	switch cmd {
	case loginCmd.FullCommand():
		login(db, *loginArgs.apiKey)

	case checkCmd.FullCommand():
		check(db, *checkArgs.cave)

	case queueCmd.FullCommand():
		queue(db, *queueArgs.gameID, *queueArgs.installFolder)

	case driveCmd.FullCommand():
		drive(db)

	case daemonCmd.FullCommand():
		daemon(db)
	}
}

func openDatabase(path string) *database.DB {
	pool, err := database.Open(path)
	must(err)

	conn := pool.Get(nil)
	err = database.Prepare(conn)
	pool.Put(conn)
	must(err)

	return database.New(pool)
}

func login(db *database.DB, apiKey string) {
	client := itchio.ClientWithKey(apiKey)
	client.HTTPClient = timeout.NewDefaultClient()

	profileRes, err := client.GetProfile()
	must(err)

	profile := &models.Profile{
		ID:            profileRes.User.ID,
		APIKey:        apiKey,
		UserID:        profileRes.User.ID,
		LastConnected: time.Now().UTC(),
	}
	must(db.SaveProfile(profile))

	comm.Statf("Connected as %s (user %d)", profileRes.User.Username, profileRes.User.ID)
}

func makeChecker(db *database.DB, registry *pipeline.Registry) *updater.Checker {
	return updater.NewChecker(
		db,
		harness.NewProductionHarness(),
		registry,
		pipeline.NewQueue(db),
		installer.NewNotifier(),
	)
}

func check(db *database.DB, caveID string) {
	registry := pipeline.NewRegistry()
	checker := makeChecker(db, registry)
	consumer := comm.NewStateConsumer()

	var caves []*models.Cave
	if caveID != "" {
		cave, err := db.CaveByID(caveID)
		must(err)
		if cave == nil {
			comm.Dief("no cave with id %s", caveID)
		}
		caves = append(caves, cave)
	} else {
		var err error
		caves, err = db.AllCaves()
		must(err)
	}

	comm.Opf("Checking %d installed items", len(caves))

	upgrades := 0
	for _, cave := range caves {
		res := checker.Check(consumer, cave, true)
		if res.HasUpgrade() {
			upgrades++
		}
		comm.Debugf("%s: %s", cave.ID, res)
		comm.Result(map[string]interface{}{
			"type":    "check",
			"cave":    cave.ID,
			"outcome": string(res.Outcome),
		})
	}

	comm.Statf("%d of %d items have upgrades available", upgrades, len(caves))
}

func queue(db *database.DB, gameID int64, installFolder string) {
	checker := makeChecker(db, pipeline.NewRegistry())
	consumer := comm.NewStateConsumer()

	profile, err := db.CurrentProfile()
	must(err)
	if profile == nil {
		comm.Dief("no connected profile, run `warden login` first")
	}

	client, err := harness.NewProductionHarness().ClientFromCredentials(profile)
	must(err)

	game, err := checker.FetchGame(consumer, client, gameID, itchio.GameCredentials{})
	must(err)

	req := &pipeline.InstallRequest{
		Game:          game,
		Reason:        pipeline.DownloadReasonInstall,
		InstallFolder: installFolder,
	}
	must(pipeline.NewQueue(db).Queue(req))

	comm.Statf("Queued install of %s into %s", game.Title, installFolder)
}

func makeDriver(db *database.DB, registry *pipeline.Registry) *pipeline.Driver {
	runtime := ox.CurrentRuntime()
	return &pipeline.Driver{
		DB:       db,
		Harness:  harness.NewProductionHarness(),
		Runtime:  runtime,
		Registry: registry,

		Downloader:   installer.NewDownloader(),
		Extractor:    installer.NewExtractor(),
		Configurator: installer.NewConfigurator(runtime),
		Launcher:     installer.NewLauncher(),
		Notifier:     installer.NewNotifier(),
		Patcher:      installer.NewPatcher(),
	}
}

func drive(db *database.DB) {
	driver := makeDriver(db, pipeline.NewRegistry())
	must(driver.Drive(comm.NewStateConsumer()))
	comm.Statf("Queue drained")
}

const daemonDrivePause = 15 * time.Second

func daemon(db *database.DB) {
	registry := pipeline.NewRegistry()
	consumer := comm.NewStateConsumer()

	scheduler := updater.NewScheduler(makeChecker(db, registry), db, consumer)
	scheduler.Start()
	comm.Opf("Update scheduler running")

	driver := makeDriver(db, registry)
	for {
		err := driver.Drive(consumer)
		if err != nil {
			comm.Warnf("drive pass failed: %+v", err)
		}
		time.Sleep(daemonDrivePause)
	}
}
