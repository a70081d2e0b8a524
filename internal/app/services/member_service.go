package services

import (
	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/infrastructures"
	"gorm.io/gorm"
)

type MemberService struct {
	db              *gorm.DB
	validator       *infrastructures.Validator
	identityService *IdentityService
}

func NewMemberService(db *gorm.DB, validator *infrastructures.Validator, identityService *IdentityService) *MemberService {
	return &MemberService{
		db:              db,
		validator:       validator,
		identityService: identityService,
	}
}

// RegisterMember creates the local member row for an identity-service user.
// A member is unique by verified email or wallet address; either may be
// absent but not both.
func (s *MemberService) RegisterMember(accessToken string, req *models.MemberRegisterRequest) (*models.Member, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if req.Email == nil && req.WalletAddress == nil {
		return nil, errors.NewBadRequestError("Either email or wallet address is required")
	}

	identityUser, err := s.identityService.GetCurrentUser(accessToken)
	if err != nil {
		return nil, err
	}

	var existingMember models.Member
	err = s.db.Where("id = ?", identityUser.ID).First(&existingMember).Error
	if err == nil {
		return nil, errors.NewBadRequestError("Member already registered")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, errors.NewInternalServerError(err, "Failed to check existing member")
	}

	member := &models.Member{
		ID:            identityUser.ID,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
	}

	if err := s.db.Create(member).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to create member")
	}

	return member, nil
}

func (s *MemberService) GetMember(memberId string) (*models.Member, error) {
	memberUUID, err := uuid.Parse(memberId)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid member ID format")
	}

	var member models.Member
	err = s.db.Where("id = ?", memberUUID).First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Member not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get member")
	}

	return &member, nil
}

func (s *MemberService) UpdateMember(memberId string, req *models.MemberUpdateRequest) (*models.Member, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	member, err := s.GetMember(memberId)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		member.Email = req.Email
	}
	if req.WalletAddress != nil {
		member.WalletAddress = req.WalletAddress
	}

	if err := s.db.Save(member).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to update member")
	}

	return member, nil
}

func (s *MemberService) DeleteMember(memberId string) error {
	member, err := s.GetMember(memberId)
	if err != nil {
		return err
	}

	if err := s.db.Delete(member).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to delete member")
	}

	return nil
}
