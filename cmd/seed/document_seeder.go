package main

import (
	"context"
	"log"
	"strings"

	"ai-dms-be/internal/entity"
	"ai-dms-be/internal/repository/specification"
	"ai-dms-be/internal/repository/unitofwork"
	"ai-dms-be/pkg/llm"

	"golang.org/x/crypto/bcrypt"
)

// SeedCounters creates the record number counter at zero so the first record
// gets number 1.
func SeedCounters(ctx context.Context, uow unitofwork.RepositoryFactory) {
	repo := uow.SettingRepository()
	existing, err := repo.FindOne(ctx, specification.Filter("name", "record_number"))
	if err != nil {
		log.Printf("Error reading counter 'record_number': %v", err)
		return
	}
	if existing != nil {
		log.Printf("Counter 'record_number' already exists (value %d), skipping...", existing.Value)
		return
	}

	if err := repo.Create(ctx, &entity.Setting{Name: "record_number", Type: entity.SettingTypeCounter}); err != nil {
		log.Printf("Error creating counter 'record_number': %v", err)
		return
	}
	log.Println("Created counter: record_number")
}

// SeedModels registers one default model per provider.
func SeedModels(ctx context.Context, uow unitofwork.RepositoryFactory) {
	models := []entity.Model{
		{Name: "GPT-4o", Provider: llm.ProviderOpenAI, Model: "gpt-4o"},
		{Name: "GPT-4o (Azure)", Provider: llm.ProviderAzure, Model: "gpt-4o"},
		{Name: "Claude Sonnet", Provider: llm.ProviderAnthropic, Model: "claude-3-5-sonnet-latest"},
		{Name: "Llama 3.3 70B", Provider: llm.ProviderTogether, Model: "meta-llama/Llama-3.3-70B-Instruct-Turbo"},
		{Name: "DeepSeek Chat", Provider: llm.ProviderDeepSeek, Model: "deepseek-chat"},
		{Name: "Sonar", Provider: llm.ProviderPerplexity, Model: "sonar"},
	}

	repo := uow.ModelRepository()
	for _, m := range models {
		existing, err := repo.FindOne(ctx, specification.Filter("provider", m.Provider), specification.Filter("model", m.Model))
		if err != nil {
			log.Printf("Error reading model '%s': %v", m.Name, err)
			continue
		}
		if existing != nil {
			log.Printf("Model '%s' already exists, skipping...", m.Name)
			continue
		}

		if err := repo.Create(ctx, &m); err != nil {
			log.Printf("Error creating model '%s': %v", m.Name, err)
		} else {
			log.Printf("Created model: %s (%s/%s)", m.Name, m.Provider, m.Model)
		}
	}
}

// SeedPrompts adds a prompt that answers questions about attached files.
func SeedPrompts(ctx context.Context, uow unitofwork.RepositoryFactory) {
	p := entity.Prompt{
		Name:           "Ask your files",
		WelcomeMessage: "Attach a file and ask me anything about it.",
		SystemMessage:  "You answer questions using only the files below. Say so when the answer is not in them.\n\n" + entity.ContextPlaceholder,
	}

	repo := uow.PromptRepository()
	existing, err := repo.FindOne(ctx, specification.Filter("name", p.Name))
	if err != nil {
		log.Printf("Error reading prompt '%s': %v", p.Name, err)
		return
	}
	if existing != nil {
		log.Printf("Prompt '%s' already exists, skipping...", p.Name)
		return
	}

	if err := repo.Create(ctx, &p); err != nil {
		log.Printf("Error creating prompt '%s': %v", p.Name, err)
		return
	}
	log.Printf("Created prompt: %s", p.Name)
}

// SeedAdmin creates the admin account, or promotes an existing user with the
// same email.
func SeedAdmin(ctx context.Context, uow unitofwork.RepositoryFactory, email, password string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		log.Println("SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set, skipping admin...")
		return
	}

	repo := uow.UserRepository()
	existing, err := repo.FindByEmail(ctx, email)
	if err != nil {
		log.Printf("Error reading user '%s': %v", email, err)
		return
	}
	if existing != nil {
		if existing.IsAdmin() {
			log.Printf("Admin '%s' already exists, skipping...", email)
			return
		}
		existing.Role = entity.UserRoleAdmin
		if err := repo.Save(ctx, existing); err != nil {
			log.Printf("Error promoting user '%s': %v", email, err)
			return
		}
		log.Printf("Promoted user to admin: %s", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing admin password: %v", err)
		return
	}
	admin := &entity.User{Name: "Administrator", Email: email, Password: string(hash), Role: entity.UserRoleAdmin}
	if err := repo.Create(ctx, admin); err != nil {
		log.Printf("Error creating admin '%s': %v", email, err)
		return
	}
	log.Printf("Created admin: %s", email)
}
