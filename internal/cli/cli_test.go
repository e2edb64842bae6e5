package cli

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soypat/gsdfvm/sdfbuild"
	"github.com/soypat/gsdfvm/sdfmesh"
)

var pillScene = filepath.Join("testdata", "pill.yaml")

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "gsdfvm", cmd.Use)

	for _, name := range []string{"mesh", "slice", "compile", "disasm", "ops"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	workers := cmd.PersistentFlags().Lookup("workers")
	require.NotNil(t, workers)
	assert.Equal(t, "0", workers.DefValue)
}

func TestMeshCommand(t *testing.T) {
	for _, ext := range []string{"stl", "obj", "ply"} {
		t.Run(ext, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "pill."+ext)
			stdout, stderr, err := execute(t, "mesh", pillScene, "-o", out, "--closed")
			require.NoError(t, err)
			assert.Contains(t, stdout, "Wrote "+ext+" mesh of pill")
			assert.Contains(t, stderr, "build_id=")
			assert.Contains(t, stderr, "meshed SDF")

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			require.NotEmpty(t, data)
			if ext == "stl" {
				tris, err := sdfmesh.ReadBinarySTL(bytes.NewReader(data))
				require.NoError(t, err)
				assert.NotEmpty(t, tris)
			}
		})
	}
}

func TestMeshCommandErrors(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "mesh", pillScene, "-o", filepath.Join(dir, "x.gltf"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unsupported mesh extension")

	_, _, err = execute(t, "mesh", "/nonexistent/scene.yaml", "-o", filepath.Join(dir, "x.stl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "mesh", pillScene)
	require.Error(t, err, "output flag is required")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: bad\nbounds: {min: [0,0,0], max: [1,1,1]}\nroot: {op: sphere, radius: -1}\n"), 0644))
	_, _, err = execute(t, "mesh", bad, "-o", filepath.Join(dir, "x.stl"), "-q")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "building scene bad")

	noCell := filepath.Join(dir, "nocell.yaml")
	require.NoError(t, os.WriteFile(noCell, []byte("name: nocell\nbounds: {min: [-2,-2,-2], max: [2,2,2]}\nroot: {op: sphere, radius: 1}\n"), 0644))
	_, _, err = execute(t, "mesh", noCell, "-o", filepath.Join(dir, "x.stl"), "-q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cell size required")
	_, _, err = execute(t, "mesh", noCell, "-o", filepath.Join(dir, "x.stl"), "-q", "--cell", "0.25")
	require.NoError(t, err)
}

func TestSliceCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pill.png")
	stdout, _, err := execute(t, "slice", pillScene, "-o", out, "--height", "40", "--color", "iq", "-q")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote png slice of pill")

	fp, err := os.Open(out)
	require.NoError(t, err)
	defer fp.Close()
	img, err := png.Decode(fp)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dy())
	assert.Equal(t, 60, img.Bounds().Dx())

	_, _, err = execute(t, "slice", pillScene, "-o", out, "--color", "plaid", "-q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid color")
	_, _, err = execute(t, "slice", pillScene, "-o", "pill.jpg", "-q")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileAndDisasm(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pill.sdfb")
	stdout, _, err := execute(t, "compile", pillScene, "-o", out, "-q")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Compiled pill: 3 instruction(s), peak stack 2")

	fp, err := os.Open(out)
	require.NoError(t, err)
	prog, err := sdfbuild.ReadProgram(fp)
	fp.Close()
	require.NoError(t, err)
	assert.Equal(t, 3, prog.InstructionCount())

	fromFile, _, err := execute(t, "disasm", out, "-q")
	require.NoError(t, err)
	fromScene, _, err := execute(t, "disasm", pillScene, "-q")
	require.NoError(t, err)
	assert.Equal(t, fromFile, fromScene)
	lines := strings.Split(strings.TrimSpace(fromFile), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "; instructions=3 peak=2"))
	assert.Contains(t, lines[3], "Union")

	garbage := filepath.Join(t.TempDir(), "garbage.sdfb")
	require.NoError(t, os.WriteFile(garbage, []byte("not a program"), 0644))
	_, _, err = execute(t, "disasm", garbage, "-q")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpsCommand(t *testing.T) {
	stdout, _, err := execute(t, "ops")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(stdout, "\n"), "smooth_union")
}

func TestGlobalFlagErrors(t *testing.T) {
	_, _, err := execute(t, "ops", "-v", "-q")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	_, _, err = execute(t, "ops", "--workers", "-2")
	require.Error(t, err)
}

func TestExitError(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(os.ErrNotExist))
	wrapped := WrapExitError(ExitCommandError, "loading", os.ErrNotExist)
	assert.Equal(t, "loading: file does not exist", wrapped.Error())
	assert.ErrorIs(t, wrapped, os.ErrNotExist)
}
