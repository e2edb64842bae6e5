package cli

import (
	"github.com/soypat/gsdfvm"
	"github.com/soypat/gsdfvm/scene"
	"github.com/soypat/gsdfvm/sdfbuild"
)

// loadScene reads the scene at path and compiles it. Errors are command errors.
func loadScene(opts *RootOptions, path string) (*scene.Scene, *sdfbuild.Program, error) {
	s, err := scene.Load(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "loading scene "+path, err)
	}
	var bld gsdfvm.Builder
	root, err := s.Build(&bld)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "building scene "+s.Name, err)
	}
	prog, err := sdfbuild.Compile(root)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "compiling scene "+s.Name, err)
	}
	opts.Logger().Debug("compiled scene", "scene", s.Name, "instructions", prog.InstructionCount(),
		"peak_stack", prog.PeakStackDepth(), "bytes", len(prog.Bytes()))
	return s, prog, nil
}
