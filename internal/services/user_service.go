package services

import (
	"secondbrain_go_backend/internal/models"

	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateOrUpdateUser finds the user by identity-provider subject id,
// creating the row on first authenticated request. New users are seeded
// with the trial credit balance; the ledger owns the column afterwards.
func (s *UserService) CreateOrUpdateUser(auth0ID, email string) (*models.User, error) {
	user := models.User{
		Auth0ID: auth0ID,
		Email:   email,
		Credits: TrialCredits,
	}
	result := s.db.Where(models.User{Auth0ID: auth0ID}).FirstOrCreate(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

func (s *UserService) GetUserByAuth0ID(auth0ID string) (*models.User, error) {
	var user models.User
	result := s.db.Where("auth0_id = ?", auth0ID).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}
