package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/pkg/apperr"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/internal/schema"
	"ai-dms-be/pkg/authz"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type ICrudService interface {
	Create(ctx context.Context, p authz.Principal, entityName string, form map[string]string) (*dto.DocumentResult, error)
	Read(ctx context.Context, p authz.Principal, entityName, id string) (*dto.DocumentResult, error)
	Update(ctx context.Context, p authz.Principal, entityName, id string, form map[string]string) (*dto.DocumentResult, error)
	Delete(ctx context.Context, p authz.Principal, entityName, id string) (*dto.DeleteResult, error)
	List(ctx context.Context, p authz.Principal, entityName string, req dto.ListRequest) (*dto.PageResult, error)
	Descriptor(entityName string) (*registry.Descriptor, error)
}

// preparer adjusts a coerced document before it is written. existing is nil
// on create.
type preparer func(p authz.Principal, form map[string]string, doc, existing bson.M) error

type crudService struct {
	uowFactory unitofwork.RepositoryFactory
	registry   *registry.Registry
	search     ISearchService
	files      IFileService
	publisher  IPublisherService
	authorizer authz.Authorizer
	log        logger.ILogger
	preparers  map[string]preparer
	now        func() time.Time
}

func NewCrudService(
	uowFactory unitofwork.RepositoryFactory,
	reg *registry.Registry,
	search ISearchService,
	files IFileService,
	publisher IPublisherService,
	authorizer authz.Authorizer,
	log logger.ILogger,
) ICrudService {
	return &crudService{
		uowFactory: uowFactory,
		registry:   reg,
		search:     search,
		files:      files,
		publisher:  publisher,
		authorizer: authorizer,
		log:        log,
		preparers: map[string]preparer{
			registry.User:   prepareUser,
			registry.Filter: prepareFilter,
		},
		now: time.Now,
	}
}

func (s *crudService) Descriptor(entityName string) (*registry.Descriptor, error) {
	d, ok := s.registry.Resolve(entityName)
	if !ok {
		return nil, apperr.NotFound("unknown entity type %q", entityName).
			WithData(map[string]interface{}{"redirect": s.registry.FallbackURL()})
	}
	return d, nil
}

func attempted(form map[string]string) map[string]interface{} {
	data := make(map[string]interface{}, len(form))
	for k, v := range form {
		if k == "password" {
			continue
		}
		data[k] = v
	}
	return data
}

// withData attaches the rejected form to validation errors.
func withData(err error, form map[string]string) error {
	if appErr, ok := apperr.As(err); ok && appErr.Kind == apperr.KindValidation {
		return appErr.WithData(attempted(form))
	}
	return err
}

func (s *crudService) storeError(action string, d *registry.Descriptor, err error, form map[string]string) error {
	switch {
	case errors.Is(err, contract.ErrNotFound):
		return apperr.NotFound("%s not found", d.Title)
	case errors.Is(err, contract.ErrDuplicate):
		return apperr.Conflict("a %s with these values already exists", d.Name).WithData(attempted(form))
	case errors.Is(err, contract.ErrInvalidDocument):
		e := apperr.Validation("", "", fmt.Sprintf("%s was rejected by the document store", d.Name))
		e.Err = err
		return e.WithData(attempted(form))
	}
	s.log.Error("CRUD", "Store operation failed", map[string]interface{}{
		"action": action,
		"entity": d.Name,
		"error":  err.Error(),
	})
	return apperr.Storage(fmt.Sprintf("failed to %s %s", action, d.Name), err)
}

func (s *crudService) authorize(p authz.Principal, d *registry.Descriptor, owner string, act authz.Action) error {
	if !s.authorizer.Allowed(p, authz.Resource{Type: d.Name, Owner: owner}, act) {
		return apperr.AccessDenied("You are not allowed to %s this %s", act, d.Name).
			WithData(map[string]interface{}{"redirect": d.CollectionURL})
	}
	return nil
}

func (s *crudService) load(ctx context.Context, d *registry.Descriptor, id string) (bson.M, error) {
	doc, err := s.uowFactory.Store().FindByID(ctx, d.Collection, id)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return nil, apperr.NotFound("%s %s not found", d.Name, id)
		}
		return nil, s.storeError("read", d, err, nil)
	}
	return doc, nil
}

// ownerFieldIsStored reports whether the owner id lives in its own document key.
func ownerFieldIsStored(d *registry.Descriptor) bool {
	return d.OwnerField != registry.OwnerById && d.OwnerField != registry.OwnerByCreator
}

func (s *crudService) Create(ctx context.Context, p authz.Principal, entityName string, form map[string]string) (*dto.DocumentResult, error) {
	d, err := s.Descriptor(entityName)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(p, d, p.ID, authz.ActionCreate); err != nil {
		return nil, err
	}

	form = schema.StripTransport(form)
	doc := bson.M{}
	if err := schema.Apply(d.Schema, form, schema.ModeCreate, doc); err != nil {
		return nil, withData(err, form)
	}
	if prepare, ok := s.preparers[d.Name]; ok {
		if err := prepare(p, form, doc, nil); err != nil {
			return nil, withData(err, form)
		}
	}
	if d.Dynamic {
		if extra := schema.Extras(d.Schema, form); len(extra) > 0 {
			doc["extra"] = extra
		}
	}
	if ownerFieldIsStored(d) {
		if _, ok := doc[d.OwnerField]; !ok || !p.IsAdmin() {
			doc[d.OwnerField] = p.ID
		}
	}

	now := s.now().UTC()
	doc["created_at"] = now
	doc["created_by"] = p.ID
	doc["modified_at"] = now
	doc["modified_by"] = p.ID

	if d.CounterField != "" {
		n, err := s.uowFactory.SettingRepository().NextCounter(ctx, d.CounterName)
		if err != nil {
			return nil, s.storeError("number", d, err, form)
		}
		doc[d.CounterField] = n
	}

	id, err := s.uowFactory.Store().Insert(ctx, d.Collection, doc)
	if err != nil {
		return nil, s.storeError("create", d, err, form)
	}

	s.log.Info("CRUD", "Document created", map[string]interface{}{"entity": d.Name, "id": id, "by": p.ID})
	s.publisher.DocumentCreated(ctx, d.Name, id, p.ID)
	return &dto.DocumentResult{Entity: d.Name, Id: id, Document: schema.Present(d.Schema, doc)}, nil
}

func (s *crudService) Read(ctx context.Context, p authz.Principal, entityName, id string) (*dto.DocumentResult, error) {
	d, err := s.Descriptor(entityName)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, d, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(p, d, d.OwnerOf(doc), authz.ActionRead); err != nil {
		return nil, err
	}

	result := &dto.DocumentResult{Entity: d.Name, Id: id, Document: schema.Present(d.Schema, doc)}
	files, err := s.uowFactory.FileRepository().FindByDocument(ctx, id)
	if err != nil {
		s.log.Warn("CRUD", "Failed to load attached files", map[string]interface{}{"entity": d.Name, "id": id, "error": err.Error()})
		return result, nil
	}
	if len(files) > 0 {
		result.Files = map[string][]*dto.FileRecord{}
		for _, f := range files {
			result.Files[f.ElementId] = append(result.Files[f.ElementId], FileRecordOf(f))
		}
	}
	return result, nil
}

func (s *crudService) Update(ctx context.Context, p authz.Principal, entityName, id string, form map[string]string) (*dto.DocumentResult, error) {
	d, err := s.Descriptor(entityName)
	if err != nil {
		return nil, err
	}
	existing, err := s.load(ctx, d, id)
	if err != nil {
		return nil, err
	}
	owner := d.OwnerOf(existing)
	if err := s.authorize(p, d, owner, authz.ActionUpdate); err != nil {
		return nil, err
	}

	form = schema.StripTransport(form)
	doc := bson.M{}
	for k, v := range existing {
		doc[k] = v
	}
	if err := schema.Apply(d.Schema, form, schema.ModeUpdate, doc); err != nil {
		return nil, withData(err, form)
	}
	if prepare, ok := s.preparers[d.Name]; ok {
		if err := prepare(p, form, doc, existing); err != nil {
			return nil, withData(err, form)
		}
	}
	if d.Dynamic {
		mergeExtras(d.Schema, form, doc)
	}
	if ownerField := d.OwnerField; ownerFieldIsStored(d) && !p.IsAdmin() {
		if v, ok := existing[ownerField]; ok {
			doc[ownerField] = v
		} else {
			delete(doc, ownerField)
		}
	}

	doc["modified_at"] = s.now().UTC()
	doc["modified_by"] = p.ID

	if err := s.uowFactory.Store().Replace(ctx, d.Collection, id, doc); err != nil {
		return nil, s.storeError("update", d, err, form)
	}

	s.log.Info("CRUD", "Document updated", map[string]interface{}{"entity": d.Name, "id": id, "by": p.ID})
	s.publisher.DocumentUpdated(ctx, d.Name, id, p.ID)
	return &dto.DocumentResult{Entity: d.Name, Id: id, Document: schema.Present(d.Schema, doc)}, nil
}

// mergeExtras sets submitted undeclared keys and drops the ones submitted empty.
func mergeExtras(s schema.Schema, form map[string]string, doc bson.M) {
	extra := map[string]string{}
	if current, ok := doc["extra"].(bson.M); ok {
		for k, v := range current {
			if str, isString := v.(string); isString {
				extra[k] = str
			}
		}
	}
	for k, v := range schema.Extras(s, form) {
		extra[k] = v
	}
	for k, v := range form {
		if strings.TrimSpace(v) == "" {
			delete(extra, k)
		}
	}
	if len(extra) == 0 {
		delete(doc, "extra")
		return
	}
	doc["extra"] = extra
}

func (s *crudService) Delete(ctx context.Context, p authz.Principal, entityName, id string) (*dto.DeleteResult, error) {
	d, err := s.Descriptor(entityName)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, d, id)
	if err != nil {
		return nil, err
	}
	result := &dto.DeleteResult{Entity: d.Name, Id: id, DeletedFiles: []string{}, SkippedFiles: []dto.SkippedFile{}}

	// Files report a prompt pin before ownership.
	if d.Name == registry.File {
		if err := s.deleteFile(ctx, p, id); err != nil {
			return nil, err
		}
		result.DeletedFiles = append(result.DeletedFiles, id)
		result.Message = "file deleted"
		s.publisher.DocumentDeleted(ctx, d.Name, id, p.ID)
		return result, nil
	}

	if err := s.authorize(p, d, d.OwnerOf(doc), authz.ActionDelete); err != nil {
		return nil, err
	}

	dependents, err := s.dependentFiles(ctx, id, doc)
	if err != nil {
		return nil, s.storeError("delete", d, err, nil)
	}
	for _, file := range dependents {
		fileID := file.IdHex()
		reason, err := s.files.Blocker(ctx, p, file, id)
		if err == nil && reason == "" {
			err = s.files.Remove(ctx, file)
		}
		if err != nil {
			reason = messageOf(err)
		}
		if reason != "" {
			result.SkippedFiles = append(result.SkippedFiles, dto.SkippedFile{Id: fileID, Reason: reason})
			continue
		}
		result.DeletedFiles = append(result.DeletedFiles, fileID)
		s.publisher.DocumentDeleted(ctx, registry.File, fileID, p.ID)
	}

	if err := s.uowFactory.Store().Delete(ctx, d.Collection, id); err != nil {
		return nil, s.storeError("delete", d, err, nil)
	}

	result.Message = fmt.Sprintf("%s deleted", d.Name)
	if len(result.SkippedFiles) > 0 {
		ids := make([]string, 0, len(result.SkippedFiles))
		for _, skipped := range result.SkippedFiles {
			ids = append(ids, skipped.Id)
		}
		result.Message += "; files not deleted: " + strings.Join(ids, ", ")
	}

	s.log.Info("CRUD", "Document deleted", map[string]interface{}{
		"entity":        d.Name,
		"id":            id,
		"by":            p.ID,
		"deleted_files": len(result.DeletedFiles),
		"skipped_files": len(result.SkippedFiles),
	})
	s.publisher.DocumentDeleted(ctx, d.Name, id, p.ID)
	return result, nil
}

func (s *crudService) deleteFile(ctx context.Context, p authz.Principal, id string) error {
	file, err := s.uowFactory.FileRepository().FindByID(ctx, id)
	if err != nil {
		return apperr.Storage("failed to load file", err)
	}
	if file == nil {
		return apperr.NotFound("file %s not found", id)
	}
	reason, err := s.files.Blocker(ctx, p, file, "")
	if err != nil {
		return apperr.Storage("failed to check file references", err)
	}
	if reason != "" {
		if IsPinned(reason) {
			return apperr.Conflict("Cannot delete: %s", reason)
		}
		return apperr.AccessDenied("Cannot delete: %s", reason)
	}
	return s.files.Remove(ctx, file)
}

// dependentFiles returns files attached to id plus those listed in its
// file_ids field, without duplicates.
func (s *crudService) dependentFiles(ctx context.Context, id string, doc bson.M) ([]*entity.File, error) {
	repo := s.uowFactory.FileRepository()
	files, err := repo.FindByDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, f := range files {
		seen[f.IdHex()] = true
	}

	var listed []string
	if raw, ok := doc["file_ids"].(bson.A); ok {
		for _, v := range raw {
			switch fid := v.(type) {
			case string:
				listed = append(listed, fid)
			case primitive.ObjectID:
				listed = append(listed, fid.Hex())
			}
		}
	}
	var missing []string
	for _, fid := range listed {
		if !seen[fid] {
			seen[fid] = true
			missing = append(missing, fid)
		}
	}
	if len(missing) == 0 {
		return files, nil
	}

	more, err := repo.FindAll(ctx, specification.ByIDs{IDs: missing})
	if err != nil {
		return nil, err
	}
	return append(files, more...), nil
}

func (s *crudService) List(ctx context.Context, p authz.Principal, entityName string, req dto.ListRequest) (*dto.PageResult, error) {
	d, err := s.Descriptor(entityName)
	if err != nil {
		return nil, err
	}
	allowed, ownOnly := s.authorizer.ListScope(p, d.Name)
	if !allowed {
		return nil, apperr.AccessDenied("You are not allowed to list %s", d.Plural).
			WithData(map[string]interface{}{"redirect": s.registry.FallbackURL()})
	}

	search := dto.SearchRequest{
		Collection:   d.Collection,
		Schema:       d.Schema,
		SearchFields: d.Schema.Search,
		Start:        req.Start,
		Limit:        req.Limit,
		Text:         req.Search,
		FilterID:     req.Filter,
		Grouped:      req.Mode == dto.ListModeGrouped,
		GroupField:   d.GroupField,
	}
	if ownOnly {
		search.OwnerField = d.OwnerField
		search.Owner = p.ID
	}

	page, err := s.search.Search(ctx, search)
	if err != nil {
		return nil, err
	}
	page.Entity = d.Name
	page.Mode = req.Mode
	return page, nil
}

func prepareUser(p authz.Principal, form map[string]string, doc, existing bson.M) error {
	if email, ok := doc["email"].(string); ok {
		doc["email"] = strings.ToLower(strings.TrimSpace(email))
	}

	if password := form["password"]; password != "" {
		if len(password) < 8 {
			return apperr.Validation("password", "", "Password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return apperr.Storage("failed to hash password", err)
		}
		doc["password"] = string(hash)
	} else if existing == nil {
		return apperr.Validation("password", "", "Password is required")
	}

	if !p.IsAdmin() {
		if existing != nil {
			doc["role"] = existing["role"]
		} else {
			doc["role"] = string(entity.UserRoleUser)
		}
	}
	if _, ok := doc["role"]; !ok {
		doc["role"] = string(entity.UserRoleUser)
	}
	return nil
}

// prepareFilter collects field_N / operator_N / value_N (or date_value_N)
// form keys into the ordered rule list.
func prepareFilter(_ authz.Principal, form map[string]string, doc, _ bson.M) error {
	var numbers []int
	for key := range form {
		if !strings.HasPrefix(key, "field_") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(key, "field_"))
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		return nil
	}
	sort.Ints(numbers)

	rules := bson.A{}
	for i, n := range numbers {
		suffix := strconv.Itoa(n)
		field := strings.TrimSpace(form["field_"+suffix])
		if field == "" {
			continue
		}
		value, hasValue := form["value_"+suffix]
		if !hasValue {
			value = strings.TrimSpace(form["date_value_"+suffix])
			if _, err := schema.ParseDate(value); err != nil {
				if _, relative := schema.RelativeRange(value, time.Time{}); !relative {
					return apperr.Validation("date_value_"+suffix, value, "Invalid date format, expected DD.MM.YYYY")
				}
			}
		}
		rules = append(rules, bson.M{
			"field":    field,
			"operator": form["operator_"+suffix],
			"value":    value,
			"nr":       i,
		})
	}
	doc["filter"] = rules
	return nil
}
