package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	uploaddomain "github.com/kilomet/kilomet/internal/upload/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo uploaddomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo uploaddomain.Repository
}

func New(p Params) uploaddomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("upload.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetStatus(ctx context.Context, uploadID string) (*uploaddomain.StatusResponse, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(uploadID))
	if err != nil {
		return nil, uploaddomain.ErrInvalidID
	}

	upload, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, uploaddomain.ErrNotFound
	}

	return &uploaddomain.StatusResponse{
		ID:             upload.ID.String(),
		Status:         upload.Status,
		TotalLegs:      upload.TotalLegs,
		TotalClients:   upload.TotalClients,
		TotalAmountTTC: upload.TotalAmountTTC,
	}, nil
}
