package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"recruitment-platform/config"
	"recruitment-platform/internal/database"
	"recruitment-platform/internal/models"
	"recruitment-platform/internal/server"
	"recruitment-platform/internal/services"
	"recruitment-platform/pkg/auth"
	"recruitment-platform/pkg/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var verifyVacancyFlowCmd = &cobra.Command{
	Use:   "verify-vacancy-flow",
	Short: "Create a throwaway tenant and walk a vacancy through previews and publishing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Cfg
		if err := database.AutoMigrate(); err != nil {
			return err
		}
		svc, err := server.NewServices(cfg, logger.Logger, database.DB, auth.NewJWTService(cfg, auth.NewMemoryBlacklist()), nil)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		return verifyVacancyFlow(ctx, svc, cmd.OutOrStdout())
	},
}

// verifyVacancyFlow registers a company, drafts LinkedIn and Twitter posts
// for a new vacancy, publishes it and checks that every post went out
func verifyVacancyFlow(ctx context.Context, svc *server.Services, out io.Writer) error {
	suffix := uuid.NewString()[:8]

	reg, err := svc.Auth.RegisterTenantOwner(ctx, services.RegisterTenantOwnerInput{
		Username:        "verify-" + suffix,
		Email:           "verify-" + suffix + "@example.com",
		Password:        "verify-" + suffix + "-pass",
		PasswordConfirm: "verify-" + suffix + "-pass",
		FirstName:       "Flow",
		LastName:        "Check",
		CompanyName:     "Verify " + suffix,
	})
	if err != nil {
		return fmt.Errorf("register tenant: %w", err)
	}
	fmt.Fprintf(out, "tenant   %s (%s)\n", reg.Tenant.Slug, reg.Tenant.ID)

	vacancy, err := svc.Vacancies.Create(ctx, reg.Tenant.ID, reg.User.ID, services.VacancyInput{
		Title:        "Senior Go Engineer",
		Description:  "Build and operate the hiring platform backend",
		Requirements: "go, postgresql, kubernetes",
		Location:     "Remote",
		IsRemote:     true,
	})
	if err != nil {
		return fmt.Errorf("create vacancy: %w", err)
	}
	fmt.Fprintf(out, "vacancy  %s [%s]\n", vacancy.ID, vacancy.Status)

	posts, err := svc.Vacancies.GenerateSocialPreviews(ctx, reg.Tenant.ID, vacancy.ID,
		[]models.SocialPlatform{models.SocialPlatformLinkedIn, models.SocialPlatformTwitter})
	if err != nil {
		return fmt.Errorf("generate previews: %w", err)
	}
	if len(posts) != 2 {
		return fmt.Errorf("expected 2 drafts, got %d", len(posts))
	}
	for _, p := range posts {
		if p.Status != models.SocialPostDraft {
			return fmt.Errorf("%s post is %s, expected draft", p.Platform, p.Status)
		}
		fmt.Fprintf(out, "draft    %s\n", p.Platform)
	}

	vacancy, err = svc.Vacancies.Publish(ctx, reg.Tenant.ID, vacancy.ID, reg.User.ID)
	if err != nil {
		return fmt.Errorf("publish vacancy: %w", err)
	}
	if vacancy.Status != models.JobStatusPublished {
		return fmt.Errorf("vacancy is %s after publishing", vacancy.Status)
	}

	posts, err = svc.Vacancies.ListSocialPosts(ctx, reg.Tenant.ID, vacancy.ID)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	for _, p := range posts {
		if p.Status != models.SocialPostPublished || p.PostedAt == nil {
			return fmt.Errorf("%s post was not published", p.Platform)
		}
		fmt.Fprintf(out, "posted   %s at %s\n", p.Platform, p.PostedAt.Format(time.RFC3339))
	}

	fmt.Fprintln(out, "vacancy flow OK")
	return nil
}
