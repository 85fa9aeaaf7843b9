package app

import (
	"github.com/flowsmith/flowsmith-backend/internal/handlers"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Recipe      *handlers.RecipeHandler
	Step        *handlers.StepHandler
	Block       *handlers.BlockHandler
	Integration *handlers.IntegrationHandler
	Run         *handlers.RunHandler
}

func wireHandlers(s Services) Handlers {
	return Handlers{
		Auth:        handlers.NewAuthHandler(s.Auth),
		Recipe:      handlers.NewRecipeHandler(s.Recipe, s.Export),
		Step:        handlers.NewStepHandler(s.Step),
		Block:       handlers.NewBlockHandler(s.Block),
		Integration: handlers.NewIntegrationHandler(s.Integration, s.Account),
		Run:         handlers.NewRunHandler(s.Run, s.Intake, s.RunFeed),
	}
}
