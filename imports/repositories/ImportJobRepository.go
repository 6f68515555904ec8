package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"product-importer-backend/db/models"
)

type ImportJobRepository interface {
	CreateImportJob(ctx context.Context, job *models.ImportJob) (*models.ImportJob, error)
	GetImportJob(ctx context.Context, jobID string) (*models.ImportJob, error)
	UpdateImportJob(ctx context.Context, job *models.ImportJob, fields map[string]interface{}) error
	SaveRowErrors(ctx context.Context, rowErrors []models.ImportRowError) error
	GetRowErrors(ctx context.Context, jobID string, limit int) ([]models.ImportRowError, error)
	GetFilteredImportJobs(ctx context.Context, pageSize int, offset int, filters map[string]string) ([]models.ImportJob, int64, error)
	DeleteImportJob(ctx context.Context, jobID string) error
}

type importJobRepository struct {
	db *gorm.DB
}

func NewImportJobRepository(db *gorm.DB) ImportJobRepository {
	return &importJobRepository{db: db}
}

func (r *importJobRepository) CreateImportJob(ctx context.Context, job *models.ImportJob) (*models.ImportJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(job).Error
	return job, err
}

func (r *importJobRepository) GetImportJob(ctx context.Context, jobID string) (*models.ImportJob, error) {
	var job models.ImportJob
	err := r.db.WithContext(ctx).First(&job, "id = ?", jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("import job '%s' not found", jobID)
		}
		return nil, err
	}
	return &job, nil
}

// UpdateImportJob writes one committed snapshot transition. All fields land
// in a single UPDATE so concurrent readers never see a partial state.
func (r *importJobRepository) UpdateImportJob(ctx context.Context, job *models.ImportJob, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ?", job.ID).
		Updates(fields).Error
}

func (r *importJobRepository) SaveRowErrors(ctx context.Context, rowErrors []models.ImportRowError) error {
	if len(rowErrors) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rowErrors).Error
}

func (r *importJobRepository) GetRowErrors(ctx context.Context, jobID string, limit int) ([]models.ImportRowError, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var rowErrors []models.ImportRowError
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("row_number ASC").
		Limit(limit).
		Find(&rowErrors).Error
	return rowErrors, err
}

// GetFilteredImportJobs retrieves import jobs with filtering and pagination
func (r *importJobRepository) GetFilteredImportJobs(ctx context.Context, pageSize int, offset int, filters map[string]string) ([]models.ImportJob, int64, error) {
	var jobs []models.ImportJob
	var total int64

	db := r.db.WithContext(ctx).Model(&models.ImportJob{})

	for key, value := range filters {
		switch key {
		case "status":
			db = db.Where("status = ?", strings.ToLower(value))
		case "filename":
			db = db.Where("filename ILIKE ?", "%"+value+"%")
		case "start_date":
			db = db.Where("Date(created_at) >= ?", value)
		case "end_date":
			db = db.Where("Date(created_at) <= ?", value)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Limit(pageSize).Offset(offset).Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

func (r *importJobRepository) DeleteImportJob(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobID).Delete(&models.ImportRowError{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", jobID).Delete(&models.ImportJob{}).Error
	})
}
