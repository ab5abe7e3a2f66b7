package repository

// Schema definitions for the report and outbreak stores.
// Compatible with both SQLite and PostgreSQL.

const schemaReports = `
CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    lat REAL NOT NULL,
    lon REAL NOT NULL,
    species TEXT NOT NULL,
    ml_confidence REAL,
    is_invasive INTEGER,
    notes TEXT,
    reporter TEXT,
    status TEXT NOT NULL,
    ml_score REAL,
    density_score REAL,
    density_count INTEGER,
    satellite_score REAL,
    ndvi_recent REAL,
    ndvi_baseline REAL,
    ndvi_change REAL,
    ndvi_anomaly INTEGER,
    landcover_shift REAL,
    fused_risk REAL,
    reasons TEXT,
    triage_action TEXT,
    scored_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_reports_species ON reports(species, created_at);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_position ON reports(lat, lon);
CREATE INDEX IF NOT EXISTS idx_reports_risk ON reports(fused_risk);
`

const schemaOutbreaks = `
CREATE TABLE IF NOT EXISTS outbreaks (
    id TEXT PRIMARY KEY,
    species TEXT NOT NULL,
    centroid_lat REAL NOT NULL,
    centroid_lon REAL NOT NULL,
    radius_km REAL NOT NULL,
    report_count INTEGER NOT NULL,
    mean_risk REAL NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    last_member_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outbreaks_species ON outbreaks(species, status);
CREATE INDEX IF NOT EXISTS idx_outbreaks_status ON outbreaks(status);
`

const schemaOutbreakMembers = `
CREATE TABLE IF NOT EXISTS outbreak_members (
    outbreak_id TEXT NOT NULL,
    report_id TEXT NOT NULL,
    PRIMARY KEY (outbreak_id, report_id)
);

CREATE INDEX IF NOT EXISTS idx_outbreak_members_report ON outbreak_members(report_id);
`

const schemaReviewDecisions = `
CREATE TABLE IF NOT EXISTS review_decisions (
    id TEXT PRIMARY KEY,
    report_id TEXT,
    outbreak_id TEXT,
    decision TEXT NOT NULL,
    reviewer TEXT NOT NULL,
    notes TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_decisions_report ON review_decisions(report_id, created_at);
CREATE INDEX IF NOT EXISTS idx_review_decisions_outbreak ON review_decisions(outbreak_id, created_at);
`

const schemaTriageRules = `
CREATE TABLE IF NOT EXISTS triage_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    expression TEXT NOT NULL,
    action TEXT NOT NULL,
    priority INTEGER NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_triage_rules_enabled ON triage_rules(enabled, priority);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaReports,
		schemaOutbreaks,
		schemaOutbreakMembers,
		schemaReviewDecisions,
		schemaTriageRules,
	}
}
