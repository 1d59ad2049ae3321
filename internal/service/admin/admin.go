package admin

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hansal/butchershop/internal/logging"
	"github.com/hansal/butchershop/internal/models"
)

// Service performs catalog seeding and the destructive database reset.
type Service struct {
	DB *gorm.DB

	// Defaults overrides the seeded catalog; nil means DefaultProducts().
	Defaults []models.Product
}

func (s *Service) defaults() []models.Product {
	if s.Defaults != nil {
		return s.Defaults
	}
	return DefaultProducts()
}

// ResetAll wipes orders, invoices, slaughters, meat cuts and products, then
// reseeds the default catalog. Everything runs in one transaction: a
// failure anywhere leaves the prior state fully intact. Returns the number
// of reseeded products.
func (s *Service) ResetAll(ctx context.Context) (int, error) {
	loaded := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Delete in foreign-key order.
		for _, m := range []any{
			&models.Invoice{},
			&models.OrderItem{},
			&models.Order{},
			&models.MeatCut{},
			&models.Slaughter{},
			&models.Product{},
			&models.InvoiceSequence{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}

		for _, p := range s.defaults() {
			product := p
			product.ID = 0
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
			loaded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.FromContext(ctx).Warn("database reset", "products_loaded", loaded)
	return loaded, nil
}

// InitializeDefaults seeds any default product that is missing, matching by
// name. With overwrite set, existing products are updated to the default
// values instead of being left alone. Returns the touched products.
func (s *Service) InitializeDefaults(ctx context.Context, overwrite bool) ([]models.Product, error) {
	var touched []models.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range s.defaults() {
			var existing models.Product
			err := tx.Where("LOWER(name) = ?", strings.ToLower(def.Name)).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				product := def
				product.ID = 0
				if err := tx.Create(&product).Error; err != nil {
					return err
				}
				touched = append(touched, product)
			case err != nil:
				return err
			case overwrite:
				existing.Description = def.Description
				existing.Price = def.Price
				existing.MeatCutType = def.MeatCutType
				existing.StockQuantity = def.StockQuantity
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				touched = append(touched, existing)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return touched, nil
}

// ClearProducts deletes the whole catalog.
func (s *Service) ClearProducts(ctx context.Context) error {
	return s.DB.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Product{}).Error
}

// DefaultProducts is the fixed seed catalog of the farm shop.
func DefaultProducts() []models.Product {
	mk := func(name, description, price, cutType string) models.Product {
		return models.Product{
			Name:          name,
			Description:   description,
			Price:         decimal.RequireFromString(price),
			MeatCutType:   cutType,
			StockQuantity: decimal.Zero,
		}
	}

	return []models.Product{
		mk("Bio-Rindfleisch - Filet", "Zartes Rinderfilet aus biologischer Aufzucht, erstklassige Qualität", "45.00", "Rind"),
		mk("Bio-Rindfleisch - Entrecôte", "Saftiges Entrecôte mit feiner Marmorierung", "38.00", "Rind"),
		mk("Bio-Rindfleisch - Tafelspitz", "Klassischer Tafelspitz für traditionelle Gerichte", "28.00", "Rind"),
		mk("Bio-Rindfleisch - Gulasch", "Hochwertiges Gulaschfleisch, perfekt für Eintöpfe", "22.00", "Rind"),
		mk("Bio-Rindfleisch - Hackfleisch", "Frisch faschiertes Rindfleisch", "18.00", "Rind"),
		mk("Bio-Schweinefleisch - Schnitzel", "Zartes Schweineschnitzel aus artgerechter Haltung", "16.00", "Schwein"),
		mk("Bio-Schweinefleisch - Karree", "Saftiges Schweinekarree mit Fettrand", "18.00", "Schwein"),
		mk("Bio-Schweinefleisch - Bauchfleisch", "Aromatisches Bauchfleisch für Braten und Grill", "14.00", "Schwein"),
		mk("Bio-Schweinefleisch - Bratenstück", "Perfekt für Schweinsbraten", "15.00", "Schwein"),
		mk("Bio-Lammfleisch - Keule", "Zarte Lammkeule aus Weidehaltung", "32.00", "Lamm"),
		mk("Bio-Lammfleisch - Koteletts", "Saftige Lammkoteletts", "35.00", "Lamm"),
		mk("Bio-Lammfleisch - Schulter", "Aromatische Lammschulter", "28.00", "Lamm"),
		mk("Bio-Hendl - Ganzes Huhn", "Ganzes Bio-Hendl aus Freilandhaltung (ca. 1.5 kg)", "14.00", "Geflügel"),
		mk("Bio-Hendl - Brust", "Zarte Hühnerbrust ohne Haut", "22.00", "Geflügel"),
		mk("Bio-Hendl - Schenkel", "Saftige Hühnerschenkel", "12.00", "Geflügel"),
		mk("Bio-Bratwurst", "Würzige Bratwurst aus eigenem Fleisch", "16.00", "Wurst"),
		mk("Bio-Leberkäse", "Hausgemachter Leberkäse nach traditionellem Rezept", "12.00", "Wurst"),
		mk("Bio-Speck", "Geräucherter Speck aus eigener Produktion", "24.00", "Speck"),
		mk("Bio-Selchwurst", "Traditionelle geselchte Wurst", "18.00", "Wurst"),
		mk("Bio-Eier", "Frische Eier aus Freilandhaltung (10 Stück pro kg)", "4.50", "Eier"),
		mk("Bio-Honig", "Blütenhonig aus eigener Imkerei", "15.00", "Honig"),
		mk("Bio-Schmalz", "Reines Schweineschmalz", "8.00", "Fett"),
	}
}
