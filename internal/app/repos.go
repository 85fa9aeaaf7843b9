package app

import (
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

type Repos struct {
	User             repos.UserRepo
	UserToken        repos.UserTokenRepo
	Recipe           repos.RecipeRepo
	RecipeStep       repos.RecipeStepRepo
	RecipeBlock      repos.RecipeBlockRepo
	RecipeRun        repos.RecipeRunRepo
	ConnectedAccount repos.ConnectedAccountRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:             repos.NewUserRepo(db, log),
		UserToken:        repos.NewUserTokenRepo(db, log),
		Recipe:           repos.NewRecipeRepo(db, log),
		RecipeStep:       repos.NewRecipeStepRepo(db, log),
		RecipeBlock:      repos.NewRecipeBlockRepo(db, log),
		RecipeRun:        repos.NewRecipeRunRepo(db, log),
		ConnectedAccount: repos.NewConnectedAccountRepo(db, log),
	}
}
