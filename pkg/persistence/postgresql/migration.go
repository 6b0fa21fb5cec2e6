package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_rules (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				entity_type VARCHAR(100) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT false,
				trigger_kind VARCHAR(50) NOT NULL CHECK (trigger_kind IN ('on_create', 'on_create_or_edit', 'on_every_edit')),
				condition JSONB,
				actions JSONB NOT NULL DEFAULT '[]',
				owner VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_rules_entity_type ON workflow_rules(entity_type);
			CREATE INDEX idx_workflow_rules_active ON workflow_rules(active);

			CREATE TABLE approval_processes (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				entity_type VARCHAR(100) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT false,
				entry_criteria JSONB,
				steps JSONB NOT NULL DEFAULT '[]',
				owner VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_approval_processes_entity_type ON approval_processes(entity_type);

			CREATE TABLE approval_requests (
				id UUID PRIMARY KEY,
				process_id VARCHAR(255) NOT NULL REFERENCES approval_processes(id),
				step_number INT NOT NULL,
				entity_type VARCHAR(100) NOT NULL,
				record_id BIGINT NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected', 'recalled')),
				submitter VARCHAR(255) NOT NULL,
				comments TEXT NOT NULL DEFAULT '',
				votes JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_approval_requests_process_id ON approval_requests(process_id);
			CREATE INDEX idx_approval_requests_record ON approval_requests(entity_type, record_id);

			-- At most one pending request per (process, record).
			CREATE UNIQUE INDEX idx_approval_requests_one_pending
				ON approval_requests(process_id, entity_type, record_id)
				WHERE status = 'pending';

			CREATE TABLE records (
				entity_type VARCHAR(100) NOT NULL,
				id BIGINT NOT NULL,
				owner VARCHAR(255),
				fields JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (entity_type, id)
			);

			CREATE INDEX idx_records_owner ON records(owner);
		`,
	}
}
