package storage

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arovia-health/arovia-api/internal/models"
)

const (
	prescriptionsDir = "prescriptions"
	profileImagesDir = "profile-images"

	// URLPrefix is where the upload root is served from.
	URLPrefix = "/uploads"
)

// FileStore keeps uploaded prescriptions and profile images on local disk
// under a single configured root, served statically at /uploads.
type FileStore struct {
	root string
}

// NewFileStore creates the upload directories if they do not exist.
func NewFileStore(root string) (*FileStore, error) {
	for _, sub := range []string{prescriptionsDir, profileImagesDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &FileStore{root: root}, nil
}

// Root is the on-disk directory served at URLPrefix.
func (f *FileStore) Root() string { return f.root }

// StoredName derives a collision-resistant filename from the upload time,
// keeping the original extension.
func StoredName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)
}

// SavePrescription writes src to the prescriptions directory and returns the
// URL path the file is served from.
func (f *FileStore) SavePrescription(src io.Reader, storedName string) (string, error) {
	return f.save(src, prescriptionsDir, storedName)
}

// SaveProfileImage writes src to the profile-images directory and returns the
// URL path the file is served from.
func (f *FileStore) SaveProfileImage(src io.Reader, storedName string) (string, error) {
	return f.save(src, profileImagesDir, storedName)
}

func (f *FileStore) save(src io.Reader, sub, name string) (string, error) {
	dst, err := os.Create(filepath.Join(f.root, sub, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return URLPrefix + "/" + sub + "/" + name, nil
}

// Remove deletes the file behind a served URL path. Paths outside the upload
// root are ignored.
func (f *FileStore) Remove(urlPath string) error {
	rel, ok := strings.CutPrefix(urlPath, URLPrefix+"/")
	if !ok || strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(f.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveUserFiles deletes every locally stored file referenced by the
// account: all prescriptions plus an uploaded avatar. Best effort; failures
// are logged, not returned, so account deletion itself cannot be blocked by
// a missing file.
func (f *FileStore) RemoveUserFiles(u *models.User) {
	for _, p := range u.Prescriptions {
		if err := f.Remove(p.Path); err != nil {
			log.Printf("Failed to remove prescription file %s: %v", p.Path, err)
		}
	}
	// OAuth avatars are external URLs; only local uploads are removed.
	if strings.HasPrefix(u.ProfilePicture, URLPrefix+"/") {
		if err := f.Remove(u.ProfilePicture); err != nil {
			log.Printf("Failed to remove profile image %s: %v", u.ProfilePicture, err)
		}
	}
}
