package conf

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/conftree/internal/conf/node"
	"github.com/dshills/conftree/internal/conf/notify"
	"github.com/dshills/conftree/internal/conf/opt"
	"github.com/dshills/conftree/internal/logging"
)

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelDebug, Output: buf})
}

// testSchema builds a fresh descriptor table per call so each tree gets its
// own sub-table identity.
func testSchema() *opt.SubOptions {
	net := &opt.SubOptions{
		Opts: []opt.Option{
			{Name: "timeout", Type: opt.TypeInt, Min: 0, Max: 3600, HasMin: true, HasMax: true},
			{Name: "proxy", Type: opt.TypeString},
		},
		Defaults: map[string]opt.Value{"timeout": {Int: 30}},
	}
	return &opt.SubOptions{
		Opts: []opt.Option{
			{Name: "cache", Type: opt.TypeFlag},
			{Name: "level", Type: opt.TypeInt, Min: 0, Max: 10, HasMin: true, HasMax: true,
				Default: &opt.Value{Int: 5}},
			{Name: "name", Type: opt.TypeString},
			{Name: "mode", Type: opt.TypeChoice, Choices: []string{"auto", "fast", "no"}},
			{Name: "msg-level", Type: opt.TypeChoice, Flags: opt.FlagTermLevel,
				Choices: []string{"debug", "info", "warn", "error"},
				Default: &opt.Value{Str: "info"}},
			{Name: "fixed-opt", Type: opt.TypeString, Flags: opt.FlagFixed},
			{Name: "cli-only", Type: opt.TypeString, Flags: opt.FlagNoConfig},
			{Name: "pre-opt", Type: opt.TypeString, Flags: opt.FlagPreParse},
			{Name: "global-opt", Type: opt.TypeString, Flags: opt.FlagGlobal},
			{Name: "vo-*", Type: opt.TypeStringList},
			{Name: "network", Type: opt.TypeSubConfig, Sub: net},
			{Name: "old-cache", Type: opt.TypeAlias, Alias: "cache", Deprecation: "renamed"},
			{Name: "gone", Type: opt.TypeRemoved, RemovedMsg: "use network-timeout"},
			{Name: "include", Type: opt.TypeString, NoStorage: true},
			{Name: "profile", Type: opt.TypeString, NoStorage: true},
			{Name: "show-profile", Type: opt.TypeString, NoStorage: true},
			{Name: "list-options", Type: opt.TypeFlag, NoStorage: true},
		},
	}
}

func TestNew_FlattenedNames(t *testing.T) {
	c := New(testSchema())

	for _, name := range []string{"cache", "network-timeout", "network-proxy"} {
		if c.GetEntry(name) == nil {
			t.Errorf("entry %q not found", name)
		}
	}
	if c.GetEntry("timeout") != nil {
		t.Error("bare sub-table name resolved at top level")
	}
}

func TestNew_DuplicateSubTablePanics(t *testing.T) {
	net := &opt.SubOptions{Opts: []opt.Option{{Name: "timeout", Type: opt.TypeInt}}}
	schema := &opt.SubOptions{
		Opts: []opt.Option{
			{Name: "a", Type: opt.TypeSubConfig, Sub: net},
			{Name: "b", Type: opt.TypeSubConfig, Sub: net},
		},
	}
	defer func() {
		if recover() == nil {
			t.Error("nesting the same sub-table twice did not panic")
		}
	}()
	New(schema)
}

func TestDefaults_Precedence(t *testing.T) {
	c := New(testSchema(), WithDefaults(map[string]opt.Value{
		"level": {Int: 9},
		"name":  {Str: "from-template"},
	}))

	// Embedded defaults beat the template.
	if v, err := c.Get("level"); err != nil || v.Int != 5 {
		t.Errorf("level = %v, %v, want 5", v, err)
	}
	// Sub-table defaults apply to nested entries.
	if v, err := c.Get("network-timeout"); err != nil || v.Int != 30 {
		t.Errorf("network-timeout = %v, %v, want 30", v, err)
	}
	// The template covers options with no other default.
	if v, err := c.Get("name"); err != nil || v.Str != "from-template" {
		t.Errorf("name = %v, %v, want from-template", v, err)
	}
	// No default at all means the zero value.
	if v, err := c.Get("cache"); err != nil || v.Flag {
		t.Errorf("cache = %v, %v, want false", v, err)
	}
}

func TestSetOption_Basic(t *testing.T) {
	c := New(testSchema())

	if err := c.SetOption("network-timeout", "120"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	v, err := c.Get("network-timeout")
	if err != nil || v.Int != 120 {
		t.Errorf("Get = %v, %v, want 120", v, err)
	}
	text, err := c.GetText("network-timeout")
	if err != nil || text != "120" {
		t.Errorf("GetText = %q, %v", text, err)
	}
	if !c.GetEntry("network-timeout").IsSetLocally() {
		t.Error("IsSetLocally = false after set")
	}
}

func TestSetOption_Errors(t *testing.T) {
	var buf bytes.Buffer
	c := New(testSchema(), WithLogger(testLogger(&buf)))

	tests := []struct {
		name  string
		value string
		want  error
	}{
		{"bogus", "1", ErrUnknownOption},
		{"level", "", ErrMissingParam},
		{"level", "11", ErrInvalidValue},
		{"mode", "slow", ErrInvalidValue},
		{"gone", "1", ErrOptionRemoved},
	}

	for _, tt := range tests {
		if err := c.SetOption(tt.name, tt.value); !errors.Is(err, tt.want) {
			t.Errorf("SetOption(%s, %q) error = %v, want %v", tt.name, tt.value, err, tt.want)
		}
	}
	if !strings.Contains(buf.String(), "error setting option") {
		t.Error("set failures were not logged")
	}
}

func TestSetOption_Negation(t *testing.T) {
	c := New(testSchema())

	if err := c.SetOption("cache", "yes"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if err := c.SetOption("no-cache", ""); err != nil {
		t.Fatalf("SetOption(no-cache): %v", err)
	}
	if v, _ := c.Get("cache"); v.Flag {
		t.Error("no-cache did not clear the flag")
	}

	// Choices accepting "no" are negatable too.
	if err := c.SetOption("no-mode", ""); err != nil {
		t.Fatalf("SetOption(no-mode): %v", err)
	}
	if v, _ := c.Get("mode"); v.Str != "no" {
		t.Errorf("mode = %q, want no", v.Str)
	}

	if err := c.SetOption("no-cache", "yes"); !errors.Is(err, ErrDisallowParam) {
		t.Errorf("no-cache with param error = %v, want ErrDisallowParam", err)
	}
	// Negating a non-boolean stays unknown.
	if err := c.SetOption("no-name", ""); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("no-name error = %v, want ErrUnknownOption", err)
	}
}

func TestSetOption_CheckOnly(t *testing.T) {
	c := New(testSchema())

	if err := c.SetOptionFlags("level", "7", SetCheckOnly); err != nil {
		t.Fatalf("check-only set: %v", err)
	}
	if v, _ := c.Get("level"); v.Int != 5 {
		t.Errorf("check-only set stored a value: %v", v.Int)
	}
	if err := c.SetOptionFlags("level", "99", SetCheckOnly); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("check-only error = %v, want ErrInvalidValue", err)
	}
}

func TestSetOption_FlagGates(t *testing.T) {
	c := New(testSchema())

	if err := c.SetOptionFlags("fixed-opt", "x", SetNoFixed); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("fixed gate error = %v, want ErrInvalidValue", err)
	}
	if err := c.SetOptionFlags("cli-only", "x", SetFromConfigFile); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("no-config gate error = %v, want ErrInvalidValue", err)
	}
	if err := c.SetOptionFlags("pre-opt", "x", SetNoPreParse); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("no-pre-parse gate error = %v, want ErrInvalidValue", err)
	}

	// Pre-parse-only silently skips everything else.
	if err := c.SetOptionFlags("level", "7", SetPreParseOnly); err != nil {
		t.Errorf("pre-parse-only skip returned %v", err)
	}
	if v, _ := c.Get("level"); v.Int != 5 {
		t.Error("pre-parse-only set stored a value")
	}
	if err := c.SetOptionFlags("pre-opt", "x", SetPreParseOnly); err != nil {
		t.Errorf("pre-parse set: %v", err)
	}
	if v, _ := c.Get("pre-opt"); v.Str != "x" {
		t.Error("pre-parse option was not stored")
	}
}

func TestSetOption_PreserveCmdline(t *testing.T) {
	c := New(testSchema())

	if err := c.SetOptionFlags("level", "7", SetFromCmdline); err != nil {
		t.Fatalf("cmdline set: %v", err)
	}
	if !c.GetEntry("level").IsSetFromCmdline() {
		t.Fatal("IsSetFromCmdline = false")
	}

	// A later config-file set must not override the command line.
	if err := c.SetOptionFlags("level", "2", SetFromConfigFile|SetPreserveCmdline); err != nil {
		t.Fatalf("preserved set: %v", err)
	}
	if v, _ := c.Get("level"); v.Int != 7 {
		t.Errorf("level = %v, want 7", v.Int)
	}

	// Without the preserve flag it does.
	if err := c.SetOptionFlags("level", "2", SetFromConfigFile); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if v, _ := c.Get("level"); v.Int != 2 {
		t.Errorf("level = %v, want 2", v.Int)
	}
}

func TestSetOption_CmdlineMarkSticky(t *testing.T) {
	c := New(testSchema())

	_ = c.SetOptionFlags("name", "a", SetFromCmdline)
	// A later API set keeps the cmdline mark.
	if err := c.SetOption("name", "b"); err != nil {
		t.Fatalf("api set: %v", err)
	}
	if !c.GetEntry("name").IsSetFromCmdline() {
		t.Fatal("cmdline mark cleared by an API set")
	}

	// So a preserving config reload still yields to the command line.
	if err := c.SetOptionFlags("name", "c", SetFromConfigFile|SetPreserveCmdline); err != nil {
		t.Fatalf("preserved set: %v", err)
	}
	if v, _ := c.Get("name"); v.Str != "b" {
		t.Errorf("name = %q, want b", v.Str)
	}
}

func TestAlias(t *testing.T) {
	var buf bytes.Buffer
	c := New(testSchema(), WithLogger(testLogger(&buf)))

	if err := c.SetOption("old-cache", "yes"); err != nil {
		t.Fatalf("alias set: %v", err)
	}
	if v, _ := c.Get("cache"); !v.Flag {
		t.Error("alias set did not reach the target")
	}

	_ = c.SetOption("old-cache", "no")
	if n := strings.Count(buf.String(), "was replaced"); n != 1 {
		t.Errorf("alias deprecation warned %d times, want 1", n)
	}
}

func TestRemoved_WarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	c := New(testSchema(), WithLogger(testLogger(&buf)))

	_ = c.SetOption("gone", "1")
	_ = c.SetOption("gone", "2")

	if n := strings.Count(buf.String(), "was removed"); n != 1 {
		t.Errorf("removal notice logged %d times, want 1", n)
	}
	if !strings.Contains(buf.String(), "use network-timeout") {
		t.Error("removal message missing replacement hint")
	}
}

func TestWildcard(t *testing.T) {
	c := New(testSchema())

	if err := c.SetOption("vo-anything", "a,b"); err != nil {
		t.Fatalf("wildcard set: %v", err)
	}
	e := c.GetEntry("vo-whatever")
	if e == nil || e.Name != "vo-*" {
		t.Errorf("wildcard resolution = %v", e)
	}
}

func TestSubOptionString(t *testing.T) {
	var buf bytes.Buffer
	c := New(testSchema(), WithLogger(testLogger(&buf)))

	if err := c.SetOption("network", "timeout=5,proxy=localhost"); err != nil {
		t.Fatalf("suboption set: %v", err)
	}
	if v, _ := c.Get("network-timeout"); v.Int != 5 {
		t.Errorf("network-timeout = %v, want 5", v.Int)
	}
	if v, _ := c.Get("network-proxy"); v.Str != "localhost" {
		t.Errorf("network-proxy = %q", v.Str)
	}

	_ = c.SetOption("network", "timeout=6")
	if n := strings.Count(buf.String(), "suboption passing is deprecated"); n != 1 {
		t.Errorf("suboption deprecation warned %d times, want 1", n)
	}

	// The table entry itself holds no value.
	if _, err := c.Get("network"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("Get(network) error = %v, want ErrUnknownOption", err)
	}
}

func TestSetOptionNode(t *testing.T) {
	var buf bytes.Buffer
	c := New(testSchema(), WithLogger(testLogger(&buf)))

	if err := c.SetOptionNode("level", node.Int(8), 0); err != nil {
		t.Fatalf("node set: %v", err)
	}
	if v, _ := c.Get("level"); v.Int != 8 {
		t.Errorf("level = %v, want 8", v.Int)
	}

	// String nodes run through the textual parser.
	if err := c.SetOptionNode("level", node.String("3"), 0); err != nil {
		t.Fatalf("string node set: %v", err)
	}
	if v, _ := c.Get("level"); v.Int != 3 {
		t.Errorf("level = %v, want 3", v.Int)
	}

	if err := c.SetOptionNode("level", node.Map(), 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("map node error = %v, want ErrInvalidValue", err)
	}

	// Negated names are accepted for compatibility, with a one-time warning.
	_ = c.SetOption("cache", "yes")
	if err := c.SetOptionNode("no-cache", node.Flag(true), 0); err != nil {
		t.Fatalf("negated node set: %v", err)
	}
	if v, _ := c.Get("cache"); v.Flag {
		t.Error("negated node set did not clear the flag")
	}
	_ = c.SetOptionNode("no-cache", node.String(""), 0)
	if n := strings.Count(buf.String(), "deprecated, set"); n != 1 {
		t.Errorf("node negation warned %d times, want 1", n)
	}
}

func TestGetNode(t *testing.T) {
	c := New(testSchema())
	_ = c.SetOption("cache", "yes")
	_ = c.SetOption("vo-x", "a,b")

	if n, err := c.GetNode("cache"); err != nil || !n.Equal(node.Flag(true)) {
		t.Errorf("GetNode(cache) = %s, %v", n, err)
	}
	want := node.Array(node.String("a"), node.String("b"))
	if n, err := c.GetNode("vo-x"); err != nil || !n.Equal(want) {
		t.Errorf("GetNode(vo-x) = %s, %v", n, err)
	}
	if _, err := c.GetNode("bogus"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("GetNode(bogus) error = %v, want ErrUnknownOption", err)
	}
}

func TestNotifier_ChangePublishing(t *testing.T) {
	c := New(testSchema())

	var changes []notify.Change
	c.Notifier().Subscribe(func(ch notify.Change) {
		changes = append(changes, ch)
	})

	_ = c.SetOptionFlags("level", "7", SetFromCmdline)
	_ = c.SetOptionFlags("name", "x", SetFromConfigFile)
	_ = c.SetOption("cache", "yes")

	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(changes))
	}
	first := changes[0]
	if first.Name != "level" || first.Old != "5" || first.New != "7" ||
		first.Source != notify.SourceCmdline {
		t.Errorf("first change = %+v", first)
	}
	if changes[1].Source != notify.SourceConfigFile {
		t.Errorf("second change source = %v", changes[1].Source)
	}
	if changes[2].Source != notify.SourceAPI {
		t.Errorf("third change source = %v", changes[2].Source)
	}
}

func TestTermLevel_AdjustsLogger(t *testing.T) {
	var buf bytes.Buffer
	log := testLogger(&buf)
	log.SetLevel(logging.LevelInfo)
	c := New(testSchema(), WithLogger(log))

	if err := c.SetOption("msg-level", "error"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if got := log.Level(); got != logging.LevelError {
		t.Errorf("logger level = %v, want error", got)
	}
}

func TestTermLevel_CustomRefresh(t *testing.T) {
	var got string
	c := New(testSchema(), WithLevelRefresh(func(level string) { got = level }))

	if err := c.SetOption("msg-level", "debug"); err != nil {
		t.Fatalf("SetOption: %v", err)
	}
	if got != "debug" {
		t.Errorf("refresh callback got %q, want debug", got)
	}
}

func TestDup(t *testing.T) {
	c := New(testSchema())
	_ = c.SetOptionFlags("level", "7", SetFromCmdline)
	_ = c.SetOption("vo-x", "a,b")

	d := c.Dup()

	if v, _ := d.Get("level"); v.Int != 7 {
		t.Errorf("dup level = %v, want 7", v.Int)
	}
	if !d.GetEntry("level").IsSetFromCmdline() {
		t.Error("dup lost the cmdline mark")
	}

	// Mutating the copy leaves the original alone, including list storage.
	_ = d.SetOption("level", "2")
	if v, _ := c.Get("level"); v.Int != 7 {
		t.Error("dup shares storage with the original")
	}
	dv, _ := d.Get("vo-x")
	dv.List[0] = "z"
	if v, _ := c.Get("vo-x"); v.List[0] != "a" {
		t.Error("dup shares list storage with the original")
	}
}

func TestApplyDefaults(t *testing.T) {
	c := New(testSchema())
	_ = c.SetOptionFlags("level", "7", SetFromCmdline)
	_ = c.SetOption("cache", "yes")

	c.ApplyDefaults()

	if v, _ := c.Get("level"); v.Int != 5 {
		t.Errorf("level = %v, want default 5", v.Int)
	}
	if v, _ := c.Get("cache"); v.Flag {
		t.Error("cache not reset to default")
	}
	e := c.GetEntry("level")
	if e.IsSetLocally() || e.IsSetFromCmdline() {
		t.Error("set marks not cleared")
	}
}

func TestRequiresParam(t *testing.T) {
	c := New(testSchema())

	tests := []struct {
		name string
		want bool
	}{
		{"cache", false},
		{"level", true},
		{"no-cache", false},
		{"name", true},
	}
	for _, tt := range tests {
		got, err := c.RequiresParam(tt.name)
		if err != nil {
			t.Errorf("RequiresParam(%s): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("RequiresParam(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if _, err := c.RequiresParam("bogus"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("RequiresParam(bogus) error = %v, want ErrUnknownOption", err)
	}
}

func TestOptionNames(t *testing.T) {
	c := New(testSchema())
	names := c.OptionNames()

	if len(names) == 0 || names[0] != "cache" {
		t.Fatalf("OptionNames = %v", names)
	}
	for _, n := range names {
		if n == "network" {
			t.Error("sub-table entry listed as an option")
		}
		if n == "old-cache" {
			t.Error("deprecated alias listed as an option")
		}
	}
	if got := c.PositionalOption(0); got != "cache" {
		t.Errorf("PositionalOption(0) = %q", got)
	}
	if got := c.PositionalOption(len(names)); got != "" {
		t.Errorf("PositionalOption out of range = %q", got)
	}
}

func TestPrintOptionList(t *testing.T) {
	var buf bytes.Buffer
	c := New(testSchema(), WithLogger(testLogger(&buf)), WithTopLevel())

	c.PrintOptionList()

	out := buf.String()
	for _, want := range []string{"--cache", "--network-timeout", "(default: 5)", "[global]", "[nocfg]", "Total:"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q", want)
		}
	}
	if strings.Contains(out, "old-cache") {
		t.Error("listing contains hidden deprecated option")
	}
}

func TestListOptionsExit(t *testing.T) {
	var buf bytes.Buffer
	c := New(testSchema(), WithLogger(testLogger(&buf)))

	if err := c.SetOption("list-options", ""); !errors.Is(err, ErrExit) {
		t.Errorf("list-options error = %v, want ErrExit", err)
	}
	if !strings.Contains(buf.String(), "Options:") {
		t.Error("list-options did not print the listing")
	}
}

func TestSchemaOnly(t *testing.T) {
	c := New(testSchema(), WithSchemaOnly())

	if c.GetEntry("network-timeout") == nil {
		t.Fatal("schema-only tree lost name resolution")
	}
	if _, err := c.Get("level"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("schema-only Get error = %v, want ErrUnknownOption", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("CreateShadow on schema-only tree did not panic")
		}
	}()
	c.CreateShadow()
}

func TestSetRaw(t *testing.T) {
	c := New(testSchema())

	e := c.GetEntry("level")
	if err := c.SetRaw(e, opt.Value{Int: 9}, 0); err != nil {
		t.Fatalf("SetRaw: %v", err)
	}
	if v, _ := c.Get("level"); v.Int != 9 {
		t.Errorf("level = %v, want 9", v.Int)
	}
	if err := c.SetRaw(nil, opt.Value{}, 0); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("SetRaw(nil) error = %v, want ErrUnknownOption", err)
	}
}
