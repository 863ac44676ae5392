package catalog

import (
	"github.com/shopspring/decimal"
	"github.com/wanterio/wanterio-backend/pkg/backend"
)

const demoImage = "https://images.pexels.com/photos/3683107/pexels-photo-3683107.jpeg"

// demoMedicines is served when no backend is configured.
var demoMedicines = []backend.Medicine{
	demo("1", "Paracetamol 500mg", "Pain relief and fever reducer. Safe for adults and children over 12.", "12.50", 100, "Pain Relief"),
	demo("2", "Amoxicillin 250mg", "Antibiotic for bacterial infections. Prescription required.", "25.00", 50, "Antibiotics"),
	demo("3", "Cetirizine 10mg", "Antihistamine for allergies and hay fever relief.", "8.75", 80, "Allergy"),
	demo("4", "Ibuprofen 400mg", "Anti-inflammatory pain relief for muscle and joint pain.", "15.30", 75, "Pain Relief"),
	demo("5", "Vitamin C 1000mg", "Immune system support with high-strength vitamin C tablets.", "18.90", 120, "Vitamins"),
	demo("6", "Aspirin 325mg", "Pain reliever and blood thinner. Consult doctor for regular use.", "9.99", 90, "Pain Relief"),
	demo("7", "Omeprazole 20mg", "Proton pump inhibitor for acid reflux and heartburn.", "22.50", 60, "Digestive"),
	demo("8", "Loratadine 10mg", "Non-drowsy antihistamine for seasonal allergies.", "11.25", 85, "Allergy"),
}

func demo(id, name, description, price string, stock int, category string) backend.Medicine {
	return backend.Medicine{
		ID:            id,
		Name:          name,
		Description:   description,
		Category:      category,
		ImageURL:      demoImage,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
}
