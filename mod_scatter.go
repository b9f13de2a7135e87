package grass

import (
	"context"

	"github.com/gekko3d/grass/grassrt/rt/scatter"
)

// ScatterModule feeds the grass renderer with uniformly scattered blades.
// Install it after GrassModule.
type ScatterModule struct {
	Params  scatter.Params
	Workers int
}

type ScatterState struct {
	Producer *scatter.Producer
	// Generations counts successful regenerations.
	Generations int
}

func (mod ScatterModule) Install(app *App, cmd *Commands) {
	grass := Resource[GrassState](app)
	if grass == nil {
		panic("ScatterModule: GrassModule must be installed before ScatterModule")
	}

	producer := scatter.NewProducer(grass, namedLogger(app, "scatter"), mod.Params)
	producer.SetWorkers(mod.Workers)
	cmd.AddResources(&ScatterState{Producer: producer})

	app.UseSystem(
		System(scatterSystem).
			InStage(PreRender).
			RunAlways(),
	)
}

func scatterSystem(state *ScatterState, cmd *Commands) {
	changed, err := state.Producer.UpdateIfNeeded(context.Background())
	if err != nil {
		cmd.Logger().Errorf("scatter: %v", err)
		return
	}
	if changed {
		state.Generations++
	}
}
