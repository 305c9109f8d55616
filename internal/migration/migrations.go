package migration

// getAllMigrations retorna todas as migrações disponíveis
func getAllMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_roles_rates",
			Up: `
				-- Catálogo de perfis e diárias usado no prompt de estimativa
				CREATE TABLE IF NOT EXISTS roles_rates (
					role VARCHAR(255) PRIMARY KEY,
					rate NUMERIC(12, 2) NOT NULL CHECK (rate >= 0),
					created_at TIMESTAMP DEFAULT NOW(),
					updated_at TIMESTAMP DEFAULT NOW()
				);
			`,
			Down: `DROP TABLE IF EXISTS roles_rates;`,
		},
		{
			Version: 2,
			Name:    "create_employees",
			Up: `
				-- Funcionários e disponibilidade para alocação nos perfis estimados
				CREATE TABLE IF NOT EXISTS employees (
					id SERIAL PRIMARY KEY,
					firstname VARCHAR(255) NOT NULL,
					lastname VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL UNIQUE,
					role VARCHAR(255) NOT NULL,
					is_available BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP DEFAULT NOW(),
					updated_at TIMESTAMP DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_employees_role_available ON employees (role) WHERE is_available;
			`,
			Down: `DROP TABLE IF EXISTS employees;`,
		},
	}
}
