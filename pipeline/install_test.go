package pipeline_test

import (
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	itchio "github.com/itchio/go-itchio"
	"github.com/itchio/ox"
	"github.com/itchio/warden/database"
	"github.com/itchio/warden/database/models"
	"github.com/itchio/warden/pipeline"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	httpmock "gopkg.in/jarcoal/httpmock.v1"
)

type callRecorder struct {
	calls []string
}

func (cr *callRecorder) record(name string) {
	cr.calls = append(cr.calls, name)
}

type fakeDownloader struct {
	cr  *callRecorder
	err error
}

func (fd *fakeDownloader) Download(consumer *state.Consumer, url string, destPath string, onProgress func(progress float64)) error {
	fd.cr.record("download")
	if fd.err != nil {
		return fd.err
	}
	onProgress(0.5)
	return ioutil.WriteFile(destPath, []byte("archive-bytes"), 0644)
}

type fakeExtractor struct {
	cr  *callRecorder
	err error
}

func (fe *fakeExtractor) Extract(consumer *state.Consumer, archivePath string, destFolder string) error {
	fe.cr.record("extract")
	return fe.err
}

type fakeConfigurator struct {
	cr    *callRecorder
	execs []string
	err   error
}

func (fc *fakeConfigurator) Configure(consumer *state.Consumer, installFolder string) ([]string, error) {
	fc.cr.record("configure")
	return fc.execs, fc.err
}

type fakeLauncher struct {
	cr       *callRecorder
	launched []string
	onExit   func()
}

func (fl *fakeLauncher) Launch(consumer *state.Consumer, executablePath string, onExit func()) error {
	fl.cr.record("launch")
	fl.launched = append(fl.launched, executablePath)
	fl.onExit = onExit
	return nil
}

type fakePatcher struct {
	cr      *callRecorder
	applied []string
}

func (fp *fakePatcher) Apply(consumer *state.Consumer, patchPath string, installFolder string) error {
	fp.cr.record("patch")
	fp.applied = append(fp.applied, patchPath)
	return nil
}

type fakeNotifier struct {
	notices []string
}

func (fn *fakeNotifier) Notify(message string) {
	fn.notices = append(fn.notices, message)
}

func (fn *fakeNotifier) PromptChoice(title string, message string, options []*pipeline.ChoiceOption) {
}

type pipelineHarness struct {
	db           *database.DB
	install      *pipeline.Install
	registry     *pipeline.Registry
	cr           *callRecorder
	downloader   *fakeDownloader
	extractor    *fakeExtractor
	configurator *fakeConfigurator
	launcher     *fakeLauncher
	patcher      *fakePatcher
	notifier     *fakeNotifier
	consumer     *state.Consumer
	client       *itchio.Client
	tmp          string
}

type clientHarness struct {
	client *itchio.Client
}

func (ch *clientHarness) ClientFromCredentials(profile *models.Profile) (*itchio.Client, error) {
	return ch.client, nil
}

func makePipelineHarness(t *testing.T) *pipelineHarness {
	pool, err := database.OpenInMemory()
	require.NoError(t, err)

	conn := pool.Get(nil)
	require.NoError(t, database.Prepare(conn))
	pool.Put(conn)

	db := database.New(pool)
	require.NoError(t, db.SaveProfile(&models.Profile{
		ID:     1,
		APIKey: "KEY",
		UserID: 11,
	}))

	client := itchio.ClientWithKey("KEY")
	client.HTTPClient = &http.Client{}
	client.SetServer("https://itch.test")

	tmp, err := ioutil.TempDir("", "warden-pipeline-test")
	require.NoError(t, err)

	cr := &callRecorder{}
	h := &pipelineHarness{
		db:           db,
		cr:           cr,
		downloader:   &fakeDownloader{cr: cr},
		extractor:    &fakeExtractor{cr: cr},
		configurator: &fakeConfigurator{cr: cr, execs: []string{"/games/xenoblast/xenoblast"}},
		launcher:     &fakeLauncher{cr: cr},
		patcher:      &fakePatcher{cr: cr},
		notifier:     &fakeNotifier{},
		client:       client,
		tmp:          tmp,
		consumer: &state.Consumer{
			OnMessage: func(level string, message string) {
				t.Logf("[%s] %s", level, message)
			},
		},
	}

	registry := pipeline.NewRegistry()
	h.registry = registry

	install := pipeline.NewInstall(db, &clientHarness{client: client}, registry)
	install.Runtime = &ox.Runtime{Platform: ox.PlatformLinux, Is64: true}
	install.Downloader = h.downloader
	install.Extractor = h.extractor
	install.Configurator = h.configurator
	install.Launcher = h.launcher
	install.Notifier = h.notifier
	install.Patcher = h.patcher
	h.install = install

	t.Cleanup(func() {
		os.RemoveAll(tmp)
	})
	return h
}

func (h *pipelineHarness) request() *pipeline.InstallRequest {
	return &pipeline.InstallRequest{
		CaveID: "cave-1",
		Game: &itchio.Game{
			ID:             123,
			Title:          "Xenoblast",
			Classification: "game",
		},
		Upload: &itchio.Upload{
			ID:        100,
			Filename:  "xenoblast-linux.zip",
			Size:      1024,
			Type:      "default",
			Platforms: itchio.Platforms{Linux: itchio.ArchitecturesAll},
		},
		Reason:        pipeline.DownloadReasonInstall,
		TotalSize:     1024,
		InstallFolder: filepath.Join(h.tmp, "install"),
		StagingFolder: filepath.Join(h.tmp, "staging"),
	}
}

func TestInstallHappyPath(t *testing.T) {
	h := makePipelineHarness(t)
	req := h.request()

	require.NoError(t, h.install.Perform(h.consumer, req))
	assert.EqualValues(t, pipeline.StateRunning, h.install.State())

	// strict stage order, no skips
	assert.EqualValues(t, []string{"download", "extract", "configure", "launch"}, h.cr.calls)
	assert.EqualValues(t, []string{"/games/xenoblast/xenoblast"}, h.launcher.launched)

	cave, err := h.db.CaveByID("cave-1")
	require.NoError(t, err)
	require.NotNil(t, cave)
	assert.EqualValues(t, 100, cave.UploadID)
	assert.EqualValues(t, 0, cave.BuildID, "no build id for a wharf-less upload")
	assert.EqualValues(t, 11, cave.InstalledByID)
	assert.True(t, cave.Launchable)
	require.NotNil(t, cave.InstalledAt)

	// terminal event always arrives
	sawDone := false
	for ev := range h.install.Events() {
		if ev.Kind == pipeline.EventDone {
			sawDone = true
		}
	}
	assert.True(t, sawDone)
}

func TestInstallKeepsLaunchTaskWhileGameRuns(t *testing.T) {
	h := makePipelineHarness(t)
	req := h.request()

	require.NoError(t, h.install.Perform(h.consumer, req))
	require.NotNil(t, h.launcher.onExit)

	// the install task is gone, the launch task holds the game busy
	assert.True(t, h.registry.IsGameBusy(123, pipeline.TaskKindLaunch))
	assert.EqualValues(t, 1, h.registry.Len())

	h.launcher.onExit()
	assert.False(t, h.registry.IsGameBusy(123))
	assert.EqualValues(t, 0, h.registry.Len())
}

func TestInstallRecordsBuild(t *testing.T) {
	h := makePipelineHarness(t)
	req := h.request()
	req.Upload.Build = &itchio.Build{ID: 7}

	require.NoError(t, h.install.Perform(h.consumer, req))

	cave, err := h.db.CaveByID("cave-1")
	require.NoError(t, err)
	require.NotNil(t, cave)
	assert.EqualValues(t, 7, cave.BuildID, "build id recorded exactly when the upload does wharf")
}

func TestInstallHaltsOnExtractFailure(t *testing.T) {
	h := makePipelineHarness(t)

	// pretend an older version is already installed
	require.NoError(t, h.db.SaveCave(&models.Cave{
		ID:         "cave-1",
		GameID:     123,
		UploadID:   90,
		BuildID:    5,
		Launchable: true,
	}))

	h.extractor.err = errors.New("corrupt archive")

	err := h.install.Perform(h.consumer, h.request())
	require.Error(t, err)
	assert.EqualValues(t, pipeline.StateExtracting, h.install.State(), "pipeline parks in the failing stage")

	// configure and launch never ran
	assert.EqualValues(t, []string{"download", "extract"}, h.cr.calls)

	// the cave's recorded state is untouched
	cave, err := h.db.CaveByID("cave-1")
	require.NoError(t, err)
	require.NotNil(t, cave)
	assert.EqualValues(t, 90, cave.UploadID)
	assert.EqualValues(t, 5, cave.BuildID)

	// user heard about it, with the game's title
	require.NotEmpty(t, h.notifier.notices)
	assert.Contains(t, h.notifier.notices[len(h.notifier.notices)-1], "Xenoblast")

	// terminal failure event still arrives
	sawFailed := false
	for ev := range h.install.Events() {
		if ev.Kind == pipeline.EventFailed {
			sawFailed = true
		}
	}
	assert.True(t, sawFailed)
}

func TestInstallSkipsTransferWhenArchivePresent(t *testing.T) {
	h := makePipelineHarness(t)
	req := h.request()

	require.NoError(t, os.MkdirAll(req.StagingFolder, 0755))
	require.NoError(t, ioutil.WriteFile(
		filepath.Join(req.StagingFolder, "xenoblast-linux.zip"),
		[]byte("leftover-from-last-run"), 0644))

	require.NoError(t, h.install.Perform(h.consumer, req))
	assert.EqualValues(t, pipeline.StateRunning, h.install.State())

	// went straight from downloading to extracting, no transfer
	assert.EqualValues(t, []string{"extract", "configure", "launch"}, h.cr.calls)
}

func TestInstallHaltsWithoutCompatibleUploads(t *testing.T) {
	h := makePipelineHarness(t)
	httpmock.ActivateNonDefault(h.client.HTTPClient)
	defer httpmock.DeactivateAndReset()

	responder, err := httpmock.NewJsonResponder(200, map[string]interface{}{
		"uploads": []interface{}{
			map[string]interface{}{
				"id":        44,
				"filename":  "xenoblast-windows.zip",
				"type":      "default",
				"platforms": map[string]interface{}{"windows": "all"},
			},
		},
	})
	require.NoError(t, err)
	httpmock.RegisterResponder("GET", "https://itch.test/games/123/uploads", responder)

	req := h.request()
	req.Upload = nil

	require.NoError(t, h.install.Perform(h.consumer, req), "nothing to install is not an error")
	assert.EqualValues(t, pipeline.StateSearchingUpload, h.install.State())
	assert.Empty(t, h.cr.calls)
	require.NotEmpty(t, h.notifier.notices)
	assert.Contains(t, h.notifier.notices[0], "Xenoblast")
}

func TestInstallAppliesPatchChain(t *testing.T) {
	h := makePipelineHarness(t)
	req := h.request()
	req.Upload.Build = &itchio.Build{ID: 7}
	req.Build = req.Upload.Build
	req.Incremental = true
	req.UpgradePath = []*itchio.Build{{ID: 6}, {ID: 7}}

	require.NoError(t, h.db.SaveCave(&models.Cave{
		ID:         "cave-1",
		GameID:     123,
		UploadID:   100,
		BuildID:    5,
		Launchable: true,
	}))

	require.NoError(t, h.install.Perform(h.consumer, req))
	assert.EqualValues(t, pipeline.StateRunning, h.install.State())

	// one download+apply per patch, in chain order, no archive extraction
	assert.EqualValues(t, []string{"download", "patch", "download", "patch", "configure", "launch"}, h.cr.calls)
	require.EqualValues(t, 2, len(h.patcher.applied))
	assert.Contains(t, h.patcher.applied[0], "patch-6")
	assert.Contains(t, h.patcher.applied[1], "patch-7")

	cave, err := h.db.CaveByID("cave-1")
	require.NoError(t, err)
	assert.EqualValues(t, 7, cave.BuildID)
}
