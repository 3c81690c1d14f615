package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/pkg/apperr"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/pkg/authz"
	"ai-dms-be/pkg/extract"
	"ai-dms-be/pkg/storage"
)

const (
	tempFolder      = "temp"
	documentsFolder = "documents"
	formFilesPrefix = "files_"

	pinnedReasonPrefix = "file is pinned"
)

var allowedExtensions = map[string]bool{
	"txt": true, "pdf": true, "png": true, "jpg": true,
	"jpeg": true, "gif": true, "csv": true, "md": true,
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type IFileService interface {
	Upload(ctx context.Context, p authz.Principal, in dto.UploadInput, category, documentID, elementID string) (*dto.FileRecord, error)
	// UploadForm stores every file under a files_{element_id} key.
	UploadForm(ctx context.Context, p authz.Principal, form *multipart.Form, category, documentID string) (*dto.UploadResult, error)
	Open(ctx context.Context, p authz.Principal, id string) (*entity.File, io.ReadCloser, error)
	Content(ctx context.Context, file *entity.File) ([]byte, error)
	// Blocker names the reason p may not delete file as part of deleting
	// parentID, or returns "" when the delete may go ahead.
	Blocker(ctx context.Context, p authz.Principal, file *entity.File, parentID string) (string, error)
	// Remove deletes the blob, tolerating a missing one, then the document.
	Remove(ctx context.Context, file *entity.File) error
}

type fileService struct {
	uowFactory unitofwork.RepositoryFactory
	blobs      storage.Storage
	cache      contract.ContextCache
	authorizer authz.Authorizer
	log        logger.ILogger
}

func NewFileService(
	uowFactory unitofwork.RepositoryFactory,
	blobs storage.Storage,
	cache contract.ContextCache,
	authorizer authz.Authorizer,
	log logger.ILogger,
) IFileService {
	return &fileService{
		uowFactory: uowFactory,
		blobs:      blobs,
		cache:      cache,
		authorizer: authorizer,
		log:        log,
	}
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}
	name = unsafeNameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "._")
}

func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

func folderFor(category string) string {
	category = SanitizeFilename(category)
	if category == "" {
		return tempFolder
	}
	return documentsFolder + "/" + category
}

func FileRecordOf(f *entity.File) *dto.FileRecord {
	return &dto.FileRecord{
		Id:         f.IdHex(),
		Name:       f.Name,
		FileType:   f.FileType,
		Path:       f.Path,
		Category:   f.Category,
		OwnerId:    f.OwnerId,
		DocumentId: f.DocumentId,
		ElementId:  f.ElementId,
	}
}

func (s *fileService) Upload(ctx context.Context, p authz.Principal, in dto.UploadInput, category, documentID, elementID string) (*dto.FileRecord, error) {
	if strings.TrimSpace(in.Filename) == "" {
		return nil, apperr.Validation("file", "", "No file selected")
	}
	ext := fileExtension(in.Filename)
	if !allowedExtensions[ext] {
		return nil, apperr.Validation("file", in.Filename, fmt.Sprintf("File type .%s is not allowed", ext))
	}
	name := SanitizeFilename(in.Filename)
	if name == "" {
		return nil, apperr.Validation("file", in.Filename, "Invalid file name")
	}
	if !s.authorizer.Allowed(p, authz.Resource{Type: registry.File, Owner: p.ID}, authz.ActionCreate) {
		return nil, apperr.AccessDenied("You are not allowed to upload files")
	}

	file := &entity.File{
		Name:       name,
		Path:       folderFor(category),
		Category:   category,
		FileType:   ext,
		OwnerId:    p.ID,
		DocumentId: documentID,
		ElementId:  elementID,
	}
	file.CreatedBy = p.ID
	file.ModifiedBy = p.ID

	repo := s.uowFactory.FileRepository()
	if err := repo.Create(ctx, file); err != nil {
		s.log.Error("FILE", "Failed to create file document", map[string]interface{}{"name": name, "error": err.Error()})
		return nil, apperr.Storage("failed to store file", err)
	}

	content, err := s.save(ctx, file, in)
	if err != nil {
		s.log.Error("FILE", "Failed to write blob", map[string]interface{}{"file_id": file.IdHex(), "key": file.StorageKey(), "error": err.Error()})
		if delErr := repo.Delete(ctx, file.IdHex()); delErr != nil {
			s.log.Warn("FILE", "Failed to roll back file document", map[string]interface{}{"file_id": file.IdHex(), "error": delErr.Error()})
		}
		return nil, apperr.Storage("failed to store file", err)
	}

	record := FileRecordOf(file)
	switch {
	case extract.Supported(ext):
		text, err := extract.Extract(content, ext)
		if err != nil {
			record.ExtractError = fmt.Sprintf("Error extracting text: %v", err)
			break
		}
		record.Content = text
		record.CharCount = utf8.RuneCountInString(text)
		s.cache.Set(ctx, file.IdHex(), text)
	case file.IsImage():
		if len(content) == 0 {
			record.Base64Error = "Error encoding image: empty file"
			break
		}
		record.Base64 = base64.StdEncoding.EncodeToString(content)
	}

	s.log.Info("FILE", "File uploaded", map[string]interface{}{"file_id": record.Id, "name": name, "owner_id": p.ID, "document_id": documentID})
	return record, nil
}

// save writes the blob and returns its bytes when the type is post-processed.
func (s *fileService) save(ctx context.Context, file *entity.File, in dto.UploadInput) ([]byte, error) {
	if in.Open == nil {
		return nil, errors.New("upload has no content")
	}
	src, err := in.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var r io.Reader = src
	var buf bytes.Buffer
	if extract.Supported(file.FileType) || file.IsImage() {
		r = io.TeeReader(src, &buf)
	}
	if err := s.blobs.Save(ctx, file.StorageKey(), r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *fileService) UploadForm(ctx context.Context, p authz.Principal, form *multipart.Form, category, documentID string) (*dto.UploadResult, error) {
	result := &dto.UploadResult{Files: []*dto.FileRecord{}}
	if form == nil {
		return result, nil
	}

	keys := make([]string, 0, len(form.File))
	for key := range form.File {
		if strings.HasPrefix(key, formFilesPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		elementID := strings.TrimPrefix(key, formFilesPrefix)
		for _, header := range form.File[key] {
			if header.Filename == "" {
				continue
			}
			h := header
			in := dto.UploadInput{
				Filename: h.Filename,
				Size:     h.Size,
				Open: func() (io.ReadCloser, error) {
					f, err := h.Open()
					if err != nil {
						return nil, err
					}
					return f, nil
				},
			}
			record, err := s.Upload(ctx, p, in, category, documentID, elementID)
			if err != nil {
				if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindAccessDenied {
					return nil, err
				}
				result.Failed = append(result.Failed, dto.UploadFailure{Filename: h.Filename, Message: messageOf(err)})
				continue
			}
			result.Files = append(result.Files, record)
		}
	}
	return result, nil
}

func messageOf(err error) string {
	if appErr, ok := apperr.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

func (s *fileService) Open(ctx context.Context, p authz.Principal, id string) (*entity.File, io.ReadCloser, error) {
	file, err := s.uowFactory.FileRepository().FindByID(ctx, id)
	if err != nil {
		return nil, nil, apperr.Storage("failed to load file", err)
	}
	if file == nil {
		return nil, nil, apperr.NotFound("file %s not found", id)
	}
	if !s.authorizer.Allowed(p, authz.Resource{Type: registry.File, Owner: file.OwnerId}, authz.ActionRead) {
		return nil, nil, apperr.AccessDenied("You do not have access to this file")
	}

	rc, err := s.blobs.Open(ctx, file.StorageKey())
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			s.log.Warn("FILE", "Blob missing for file document", map[string]interface{}{"file_id": id, "key": file.StorageKey()})
			return nil, nil, apperr.NotFound("file %s has no content", id)
		}
		return nil, nil, apperr.Storage("failed to open file", err)
	}
	return file, rc, nil
}

func (s *fileService) Content(ctx context.Context, file *entity.File) ([]byte, error) {
	rc, err := s.blobs.Open(ctx, file.StorageKey())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *fileService) Blocker(ctx context.Context, p authz.Principal, file *entity.File, parentID string) (string, error) {
	if file.DocumentId != "" && file.DocumentId != parentID {
		prompt, err := s.uowFactory.PromptRepository().FindByID(ctx, file.DocumentId)
		if err != nil {
			return "", err
		}
		if prompt != nil {
			return fmt.Sprintf("%s by prompt %q (%s)", pinnedReasonPrefix, prompt.Name, prompt.IdHex()), nil
		}
	}
	if !s.authorizer.Allowed(p, authz.Resource{Type: registry.File, Owner: file.OwnerId}, authz.ActionDelete) {
		return "no permission to delete this file", nil
	}
	return "", nil
}

// IsPinned reports whether a Blocker reason is a prompt pin rather than a
// missing permission.
func IsPinned(reason string) bool {
	return strings.HasPrefix(reason, pinnedReasonPrefix)
}

func (s *fileService) Remove(ctx context.Context, file *entity.File) error {
	id := file.IdHex()
	if err := s.blobs.Delete(ctx, file.StorageKey()); err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			s.log.Error("FILE", "Failed to delete blob", map[string]interface{}{"file_id": id, "error": err.Error()})
			return apperr.Storage("failed to delete file", err)
		}
		s.log.Warn("FILE", "Blob already missing", map[string]interface{}{"file_id": id, "key": file.StorageKey()})
	}
	if err := s.uowFactory.FileRepository().Delete(ctx, id); err != nil && !errors.Is(err, contract.ErrNotFound) {
		s.log.Error("FILE", "Failed to delete file document", map[string]interface{}{"file_id": id, "error": err.Error()})
		return apperr.Storage("failed to delete file", err)
	}
	s.cache.Delete(ctx, id)
	return nil
}
