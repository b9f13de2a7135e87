package grass

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

type App struct {
	stateful           bool
	stateTransitioning bool
	started            bool
	initialState       State
	finalState         State
	nextState          State
	state              State
	stages             []Stage
	systems            map[string]map[State]map[statePhase][]systemFn
	systemsStateless   map[string][]systemFn
	resources          map[reflect.Type]any
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// Run steps the app until the final state is reached. A stateless app
// runs forever.
func (app *App) Run() {
	if app.stateful {
		app.Logger().Debugf("running in stateful mode")
	} else {
		app.Logger().Debugf("running in stateless mode")
	}
	for !app.Step() {
	}
}

// Step runs every stage once and applies a pending state change. It
// reports whether the app has finished.
func (app *App) Step() bool {
	if !app.started {
		app.started = true
		if app.stateful {
			app.state = app.initialState
			app.callSystems(app.state, enter)
		}
	}

	app.callSystems(app.state, execute)

	if !app.stateful {
		return false
	}
	if app.stateTransitioning {
		app.stateTransitioning = false
		app.executeChangeState(app.nextState)
	}
	if app.state == app.finalState {
		app.callSystems(app.state, exit)
		return true
	}
	return false
}

func (app *App) State() State {
	return app.state
}

func (app *App) callSystems(state State, phase statePhase) {
	for _, stage := range app.stages {
		if execute == phase {
			for _, system := range app.systemsStateless[stage.Name] {
				app.callSystem(system)
			}
		}

		if app.stateful {
			if systemsInStage, ok := app.systems[stage.Name]; ok {
				if systemsInState, ok := systemsInStage[state]; ok {
					for _, system := range systemsInState[phase] {
						app.callSystem(system)
					}
				}
			}
		}
	}
}

func (app *App) changeState(newState State) {
	app.nextState = newState
	app.stateTransitioning = true
}

func (app *App) executeChangeState(newState State) {
	app.callSystems(app.state, exit)
	app.state = newState
	app.callSystems(app.state, enter)
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type *T, or nil.
func Resource[T any](app *App) *T {
	r, ok := app.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil
	}
	return r.(*T)
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			panic(msg)
		}
	}
	systemValue.Call(args)
}
