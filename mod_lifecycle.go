package grass

const (
	StateRunning State = iota
	StateExit
)

// LifecycleModule moves the app to StateExit after MaxFrames frames. Zero
// means no limit. It needs TimeModule.
type LifecycleModule struct {
	MaxFrames uint64
}

type FrameLimit struct {
	MaxFrames uint64
}

func (mod LifecycleModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&FrameLimit{MaxFrames: mod.MaxFrames})
	app.UseSystem(
		System(frameLimitSystem).
			InStage(Finale).
			InState(OnExecute(StateRunning)),
	)
}

func frameLimitSystem(time *Time, limit *FrameLimit, cmd *Commands) {
	if limit.MaxFrames == 0 || time.Frame < limit.MaxFrames {
		return
	}
	cmd.Logger().Infof("frame limit %d reached, exiting", limit.MaxFrames)
	cmd.ChangeState(StateExit)
}
