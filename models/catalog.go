package models

// Static model catalog for Wyze cameras. The cloud API only reports the raw
// product_model code, so human-readable labels and capability flags are
// resolved locally from these tables.

var modelNames = map[string]string{
	"WYZEC1":         "V1",
	"WYZEC1-JZ":      "V2",
	"WYZE_CAKP2JFUS": "V3",
	"HL_CAM4":        "V4",
	"HL_CAM3P":       "V3 Pro",
	"WYZECP1_JEF":    "Pan",
	"HL_PAN2":        "Pan V2",
	"HL_PAN3":        "Pan V3",
	"HL_PANP":        "Pan Pro",
	"HL_CFL2":        "Floodlight V2",
	"WYZEDB3":        "Doorbell",
	"HL_DB2":         "Doorbell V2",
	"GW_BE1":         "Doorbell Pro",
	"AN_RDB1":        "Doorbell Pro 2",
	"GW_GC1":         "OG",
	"GW_GC2":         "OG 3X",
	"WVOD1":          "Outdoor",
	"HL_WCO2":        "Outdoor V2",
	"AN_RSCW":        "Battery Cam Pro",
	"LD_CFP":         "Floodlight Pro",
}

// panModels are the pan/tilt capable cameras.
var panModels = map[string]bool{
	"WYZECP1_JEF": true,
	"HL_PAN2":     true,
	"HL_PAN3":     true,
	"HL_PANP":     true,
}

// proModels record at 2K resolution.
var proModels = map[string]bool{
	"HL_CAM3P": true,
	"HL_PANP":  true,
	"HL_CAM4":  true,
	"HL_DB2":   true,
	"HL_CFL2":  true,
}

// ModelLabel returns the marketing name for a product model code,
// falling back to the raw code for models not in the catalog.
func ModelLabel(model string) string {
	if name, ok := modelNames[model]; ok {
		return name
	}
	return model
}

// IsPanModel reports whether the model supports pan/tilt control.
func IsPanModel(model string) bool {
	return panModels[model]
}

// Is2KModel reports whether the model records at 2K resolution.
func Is2KModel(model string) bool {
	return proModels[model]
}
