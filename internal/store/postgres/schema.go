package postgres

// Schema is the SQL DDL for the program store. Execute it via
// [Store.Migrate] or apply it manually during deployment. Every statement
// is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS units (
    id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    session_id        TEXT NOT NULL DEFAULT '',
    speaker           TEXT NOT NULL DEFAULT '',
    text              TEXT NOT NULL,
    preprocessed_text TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_units_session ON units(session_id);

CREATE TABLE IF NOT EXISTS propositions (
    id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    unit_id    TEXT NOT NULL,
    text       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_propositions_unit ON propositions(unit_id);

CREATE TABLE IF NOT EXISTS stances (
    id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    unit_id        TEXT NOT NULL,
    proposition_id TEXT NOT NULL,
    polarity       TEXT NOT NULL,
    confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_stances_unit ON stances(unit_id);

CREATE TABLE IF NOT EXISTS relations (
    id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    unit_id        TEXT NOT NULL,
    type           TEXT NOT NULL,
    from_text      TEXT NOT NULL DEFAULT '',
    to_text        TEXT NOT NULL DEFAULT '',
    from_entity_id TEXT NOT NULL DEFAULT '',
    to_entity_id   TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_relations_unit ON relations(unit_id);

CREATE TABLE IF NOT EXISTS spans (
    id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    unit_id      TEXT NOT NULL,
    kind         TEXT NOT NULL,
    start_offset INTEGER NOT NULL,
    end_offset   INTEGER NOT NULL,
    text         TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_spans_unit ON spans(unit_id);

CREATE TABLE IF NOT EXISTS entities (
    id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    name       TEXT NOT NULL,
    type       TEXT NOT NULL DEFAULT '',
    aliases    TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(lower(name));

CREATE TABLE IF NOT EXISTS claims (
    id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    unit_id        TEXT NOT NULL,
    proposition_id TEXT NOT NULL DEFAULT '',
    stance_id      TEXT NOT NULL DEFAULT '',
    text           TEXT NOT NULL,
    polarity       TEXT NOT NULL DEFAULT '',
    confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
    entity_ids     TEXT[] NOT NULL DEFAULT '{}',
    provenance     JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_claims_unit ON claims(unit_id);

CREATE TABLE IF NOT EXISTS extraction_traces (
    id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    unit_id    TEXT NOT NULL,
    model      TEXT NOT NULL DEFAULT '',
    prompt     TEXT NOT NULL DEFAULT '',
    response   TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_extraction_traces_unit ON extraction_traces(unit_id);

CREATE TABLE IF NOT EXISTS insights (
    id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    observer   TEXT NOT NULL,
    unit_id    TEXT NOT NULL DEFAULT '',
    summary    TEXT NOT NULL DEFAULT '',
    claim_ids  TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_insights_observer ON insights(observer);

CREATE TABLE IF NOT EXISTS pipeline_events (
    seq        BIGSERIAL,
    id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
    unit_id    TEXT NOT NULL,
    type       TEXT NOT NULL,
    payload    JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_pipeline_events_unit ON pipeline_events(unit_id, seq);

CREATE TABLE IF NOT EXISTS task_checkpoints (
    unit_id    TEXT NOT NULL,
    task       TEXT NOT NULL,
    step       TEXT NOT NULL DEFAULT '',
    data       JSONB NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (unit_id, task)
);
`
