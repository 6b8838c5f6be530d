package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aicert/cert_platform/logger"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore keeps the local copy the extractor reads and mirrors each
// file to Cloudinary as a raw asset.
type CloudinaryStore struct {
	local  *LocalStore
	cld    *cloudinary.Cloudinary
	folder string
	log    logger.Logger
}

func NewCloudinaryStore(local *LocalStore, cloudinaryURL, folder string, log logger.Logger) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStore{local: local, cld: cld, folder: folder, log: log.With("storage")}, nil
}

func (s *CloudinaryStore) Root() string { return s.local.Root() }

func (s *CloudinaryStore) Save(ctx context.Context, key string, r io.Reader) (Object, error) {
	obj, err := s.local.Save(ctx, key, r)
	if err != nil {
		return Object{}, err
	}

	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := s.cld.Upload.Upload(uploadCtx, obj.Path, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID(obj.Key),
		ResourceType: "raw",
	})
	if err != nil {
		s.local.Delete(ctx, obj.Path)
		return Object{}, fmt.Errorf("failed to upload %s to Cloudinary: %w", obj.Key, err)
	}
	obj.URL = res.SecureURL
	return obj, nil
}

// Delete removes the local copy first; a failed remote delete is only logged.
func (s *CloudinaryStore) Delete(ctx context.Context, path string) error {
	if err := s.local.Delete(ctx, path); err != nil {
		return err
	}
	if path == "" {
		return nil
	}

	id := publicID(filepath.Base(path))
	if s.folder != "" {
		id = s.folder + "/" + id
	}
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id, ResourceType: "raw"}); err != nil {
		s.log.Warn("Failed to delete %s from Cloudinary: %v", id, err)
	}
	return nil
}

func publicID(key string) string {
	return strings.TrimSuffix(key, filepath.Ext(key))
}
