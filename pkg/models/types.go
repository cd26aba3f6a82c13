package models

import (
	"time"
)

/*
LOAD → une ligne du fichier client après préparation.
*/

// CustomerRecord représente une ligne du fichier source, enrichie des totaux omnicanal.
type CustomerRecord struct {
	MasterID         string
	OrderChannel     string // optionnel
	LastOrderChannel string // optionnel

	FirstOrderDate       time.Time
	LastOrderDate        time.Time
	LastOrderDateOnline  time.Time
	LastOrderDateOffline time.Time

	OrderNumOnline  float64
	OrderNumOffline float64
	ValueOnline     float64
	ValueOffline    float64

	// Totaux omnicanal = online + offline.
	OrderNumOmni float64
	ValueOmni    float64

	// Interests vaut nil quand le champ est vide dans le fichier.
	Interests *string

	Line int // ligne CSV (1 = en-tête)
}

/*
COMPUTE → un enregistrement RFM par client, puis scores et segment.
*/

// Segment est le nom marketing associé à un code RF.
type Segment string

const (
	Hibernating        Segment = "hibernating"
	AtRisk             Segment = "at_risk"
	CantLoose          Segment = "cant_loose"
	AboutToSleep       Segment = "about_to_sleep"
	NeedAttention      Segment = "need_attention"
	LoyalCustomers     Segment = "loyal_customers"
	Promising          Segment = "promising"
	NewCustomers       Segment = "new_customers"
	PotentialLoyalists Segment = "potential_loyalists"
	Champions          Segment = "champions"
)

// RFMRecord contient les métriques d'un client et, après scoring, ses scores et son segment.
type RFMRecord struct {
	MasterID  string
	Recency   int     // jours entre la dernière commande et la date d'analyse
	Frequency float64 // total des commandes omnicanal
	Monetary  float64 // total dépensé omnicanal

	RecencyScore   int
	FrequencyScore int
	MonetaryScore  int
	RFScore        string // recency_score + frequency_score, ex: "54"
	Segment        Segment
}

// SegmentSummary contient les moyennes RFM d'un segment.
type SegmentSummary struct {
	Segment       Segment
	Customers     int
	MeanRecency   float64
	MeanFrequency float64
	MeanMonetary  float64
}

// ChannelSummary agrège les clients par canal de commande.
type ChannelSummary struct {
	Channel   string
	Customers int
	Orders    float64
	Value     float64
}

/*
CONFIG → paramètres du run
*/

// CampaignRule décrit une liste cible : segments retenus et marqueurs d'intérêt recherchés.
type CampaignRule struct {
	Name            string    `yaml:"name"`
	Segments        []Segment `yaml:"segments"`
	InterestMarkers []string  `yaml:"interest_markers"`
	OutputPath      string    `yaml:"output_path"`
}

// Config contient les paramètres passés au pipeline.
type Config struct {
	InputPath          string
	AnalysisDate       time.Time // zéro → max(last_order_date) + AnalysisOffsetDays
	AnalysisOffsetDays int
	OutputDir          string
	Campaigns          []CampaignRule
	DSN                string // optionnel : persistance des scores
	Summary            bool
	Verbose            bool
	Progress           bool
}
