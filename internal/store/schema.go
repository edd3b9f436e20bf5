package store

// Schema is the Rule Store's DDL. It is executed by Migrate and is
// deliberately plain SQL rather than a migration framework: the spec's
// Non-goals exclude migration CLI plumbing, so this module owns only
// the "current schema" statement, not a version history.
const Schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS realm (
    id   SERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS resource_type (
    id        SERIAL PRIMARY KEY,
    realm_id  INT NOT NULL REFERENCES realm(id) ON DELETE CASCADE,
    name      TEXT NOT NULL,
    is_public BOOLEAN NOT NULL DEFAULT FALSE,
    UNIQUE (realm_id, name)
);

CREATE TABLE IF NOT EXISTS action (
    id       SERIAL PRIMARY KEY,
    realm_id INT NOT NULL REFERENCES realm(id) ON DELETE CASCADE,
    name     TEXT NOT NULL,
    UNIQUE (realm_id, name)
);

CREATE TABLE IF NOT EXISTS principal (
    id         SERIAL PRIMARY KEY,
    realm_id   INT NOT NULL REFERENCES realm(id) ON DELETE CASCADE,
    username   TEXT NOT NULL,
    attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
    UNIQUE (realm_id, username)
);

CREATE TABLE IF NOT EXISTS role (
    id         SERIAL PRIMARY KEY,
    realm_id   INT NOT NULL REFERENCES realm(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    attributes JSONB NOT NULL DEFAULT '{}'::jsonb,
    UNIQUE (realm_id, name)
);

CREATE TABLE IF NOT EXISTS principal_roles (
    realm_id     INT NOT NULL REFERENCES realm(id) ON DELETE CASCADE,
    principal_id INT NOT NULL REFERENCES principal(id) ON DELETE CASCADE,
    role_id      INT NOT NULL REFERENCES role(id) ON DELETE CASCADE,
    PRIMARY KEY (principal_id, role_id)
);

-- resource is partitioned by realm_id (spec.md §3 "Partitioned tables by
-- realm_id"), so its primary key must carry every partition-key column;
-- the composite form below mirrors the original schema's
-- PRIMARY KEY (id, realm_id, resource_type_id). CatalogRepo.EnsureRealm
-- creates each realm's partition (and acl's, and external_ids') the
-- first time a realm is seen, the Go-side equivalent of the original's
-- create_realm_partition_if_not_exists trigger.
CREATE TABLE IF NOT EXISTS resource (
    id               SERIAL,
    realm_id         INT NOT NULL REFERENCES realm(id) ON DELETE CASCADE,
    resource_type_id INT NOT NULL REFERENCES resource_type(id) ON DELETE CASCADE,
    attributes       JSONB NOT NULL DEFAULT '{}'::jsonb,
    geometry         geometry(Geometry, 3857),
    PRIMARY KEY (id, realm_id, resource_type_id)
) PARTITION BY LIST (realm_id);

CREATE INDEX IF NOT EXISTS resource_type_idx ON resource (realm_id, resource_type_id);
CREATE INDEX IF NOT EXISTS resource_geometry_idx ON resource USING GIST (geometry);

CREATE TABLE IF NOT EXISTS external_ids (
    realm_id         INT NOT NULL,
    resource_type_id INT NOT NULL,
    resource_id      INT NOT NULL,
    external_id      TEXT NOT NULL,
    PRIMARY KEY (realm_id, resource_type_id, resource_id),
    UNIQUE (realm_id, resource_type_id, external_id),
    FOREIGN KEY (resource_id, realm_id, resource_type_id)
        REFERENCES resource(id, realm_id, resource_type_id) ON DELETE CASCADE
) PARTITION BY LIST (realm_id);

CREATE TABLE IF NOT EXISTS acl (
    id               SERIAL,
    realm_id         INT NOT NULL REFERENCES realm(id) ON DELETE CASCADE,
    resource_type_id INT NOT NULL REFERENCES resource_type(id) ON DELETE CASCADE,
    action_id        INT NOT NULL REFERENCES action(id) ON DELETE CASCADE,
    principal_id     INT NOT NULL DEFAULT 0,
    role_id          INT NOT NULL DEFAULT 0,
    resource_id      INT,
    conditions       JSONB,
    compiled_sql     TEXT,
    CHECK (NOT (principal_id <> 0 AND role_id <> 0)),
    PRIMARY KEY (id, realm_id),
    FOREIGN KEY (resource_id, realm_id, resource_type_id)
        REFERENCES resource(id, realm_id, resource_type_id) ON DELETE CASCADE
) PARTITION BY LIST (realm_id);

-- At most one ACL row per (realm, type, action, subject, resource):
-- the rule key invariant from spec.md §3.
CREATE UNIQUE INDEX IF NOT EXISTS acl_rule_key_idx ON acl (
    realm_id, resource_type_id, action_id, principal_id, role_id,
    COALESCE(resource_id, 0)
);

CREATE TABLE IF NOT EXISTS authorization_log (
    id               TEXT PRIMARY KEY,
    realm_id         INT NOT NULL,
    principal_id     INT NOT NULL,
    resource_type_id INT NOT NULL,
    action_id        INT NOT NULL,
    resource_id      INT,
    decision         BOOLEAN NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS authorization_log_realm_idx ON authorization_log (realm_id, created_at);
`
