package implementation

import (
	"context"
	"strings"

	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/internal/repository/specification"
)

type UserRepositoryImpl struct {
	*DocumentRepository[entity.User]
}

func NewUserRepository(store contract.DocumentStore, collection string) contract.UserRepository {
	return &UserRepositoryImpl{NewDocumentRepository[entity.User](store, collection)}
}

func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.FindOne(ctx, specification.Filter("email", strings.ToLower(strings.TrimSpace(email))))
}
