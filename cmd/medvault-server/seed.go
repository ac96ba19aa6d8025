package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain/directory"
	"github.com/medvault/medvault/internal/domain/patient"
	"github.com/medvault/medvault/internal/domain/records"
	"github.com/medvault/medvault/internal/platform/db"
)

// seedFile is the JSON shape consumed by the seed command. Records reference
// patients and organizations by position so the file can be written without
// knowing generated UUIDs.
type seedFile struct {
	Organizations []struct {
		Slug      string `json:"slug"`
		Name      string `json:"name"`
		Employees []struct {
			EmployeeID       string `json:"employee_id"`
			Name             string `json:"name"`
			IsEmergencyStaff bool   `json:"is_emergency_staff"`
		} `json:"employees"`
	} `json:"organizations"`
	Patients []struct {
		Name                 string `json:"name"`
		Email                string `json:"email"`
		DateOfBirth          string `json:"date_of_birth"`
		AllowEmergencyAccess bool   `json:"allow_emergency_access"`
		Records              []struct {
			Hospital   string          `json:"hospital"`
			Category   string          `json:"category"`
			RecordDate string          `json:"record_date"`
			Payload    json.RawMessage `json:"payload"`
		} `json:"records"`
	} `json:"patients"`
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load organizations, patients and records from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			return runSeed(file)
		},
	}
	cmd.Flags().String("file", "./seed.json", "Path to seed data file")
	return cmd
}

func runSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var data seedFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	dirSvc := directory.NewService(directory.NewOrganizationRepoPG(pool), directory.NewEmployeeRepoPG(pool))
	patientRepo := patient.NewRepoPG(pool)
	recordSvc := records.NewService(records.NewRepoPG(pool))

	for _, o := range data.Organizations {
		org := &directory.Organization{Slug: o.Slug, Name: o.Name, Active: true}
		if err := dirSvc.CreateOrganization(ctx, org); err != nil {
			return fmt.Errorf("create organization %q: %w", o.Slug, err)
		}
		for _, e := range o.Employees {
			emp := &directory.Employee{
				OrganizationID:   org.ID,
				EmployeeID:       e.EmployeeID,
				Name:             e.Name,
				Active:           true,
				IsEmergencyStaff: e.IsEmergencyStaff,
			}
			if err := dirSvc.CreateEmployee(ctx, emp); err != nil {
				return fmt.Errorf("create employee %q in %q: %w", e.EmployeeID, o.Slug, err)
			}
		}
		fmt.Printf("seeded organization %s (%d employees)\n", o.Slug, len(o.Employees))
	}

	for _, p := range data.Patients {
		dob, err := time.Parse("2006-01-02", p.DateOfBirth)
		if err != nil {
			return fmt.Errorf("patient %q: invalid date_of_birth: %w", p.Name, err)
		}

		pat := &patient.Patient{
			Name:                 p.Name,
			Email:                p.Email,
			DateOfBirth:          dob,
			AllowEmergencyAccess: p.AllowEmergencyAccess,
		}
		if _, err := patientRepo.GetByEmail(ctx, p.Email); err == nil {
			fmt.Printf("patient %s already exists, skipping\n", p.Email)
			continue
		}
		if err := patientRepo.Create(ctx, pat); err != nil {
			return fmt.Errorf("create patient %q: %w", p.Name, err)
		}

		for _, r := range p.Records {
			category, err := records.ParseCategory(r.Category)
			if err != nil {
				return fmt.Errorf("patient %q: %w", p.Name, err)
			}
			payload, err := records.DecodePayload(category, r.Payload)
			if err != nil {
				return fmt.Errorf("patient %q: decode %s payload: %w", p.Name, r.Category, err)
			}

			rec := &records.MedicalRecord{
				PatientID: pat.ID,
				Hospital:  r.Hospital,
				Category:  category,
				Payload:   payload,
			}
			if r.RecordDate != "" {
				at, err := time.Parse("2006-01-02", r.RecordDate)
				if err != nil {
					return fmt.Errorf("patient %q: invalid record_date: %w", p.Name, err)
				}
				rec.RecordDate = &at
			}
			if err := recordSvc.Import(ctx, rec); err != nil {
				return fmt.Errorf("patient %q: import record: %w", p.Name, err)
			}
		}
		fmt.Printf("seeded patient %s (%d records)\n", p.Email, len(p.Records))
	}

	return nil
}
