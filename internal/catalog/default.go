package catalog

func fields(defs ...*Field) map[string]*Field {
	m := make(map[string]*Field, len(defs))
	for _, f := range defs {
		m[f.ID] = f
	}
	return m
}

func col(name string, typ FieldType) *Field {
	return &Field{ID: name, Column: name, Type: typ}
}

func tables(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Default returns the built-in catalog of the case management application.
func Default() *Catalog {
	return MustNew(
		&DataSource{
			ID:           "claims",
			Title:        "Claims",
			BaseTable:    "claims",
			TenantColumn: "organization_id",
			Fields: fields(
				col("id", FieldText),
				col("claim_number", FieldText),
				col("claim_type", FieldText),
				col("status", FieldText),
				col("priority", FieldText),
				col("member_id", FieldText),
				&Field{ID: "amount", Column: "claim_amount", Type: FieldNumber},
				col("created_at", FieldDate),
				col("updated_at", FieldDate),
				col("resolved_at", FieldDate),
			),
			Joinable: tables("organization_members", "claim_deadlines"),
		},
		&DataSource{
			ID:           "organization_members",
			Title:        "Members",
			BaseTable:    "organization_members",
			TenantColumn: "organization_id",
			Fields: fields(
				col("id", FieldText),
				col("first_name", FieldText),
				col("last_name", FieldText),
				col("email", FieldText),
				col("role", FieldText),
				col("status", FieldText),
				col("joined_at", FieldDate),
			),
			Joinable: tables("claims", "dues_assignments"),
		},
		&DataSource{
			ID:           "claim_deadlines",
			Title:        "Claim Deadlines",
			BaseTable:    "claim_deadlines",
			TenantColumn: "organization_id",
			Fields: fields(
				col("id", FieldText),
				col("claim_id", FieldText),
				col("deadline_type", FieldText),
				col("due_date", FieldDate),
				col("is_met", FieldBoolean),
			),
			Joinable: tables("claims"),
		},
		&DataSource{
			ID:           "dues_assignments",
			Title:        "Dues Assignments",
			BaseTable:    "dues_assignments",
			TenantColumn: "organization_id",
			Fields: fields(
				col("id", FieldText),
				col("member_id", FieldText),
				col("amount", FieldNumber),
				col("status", FieldText),
				col("due_date", FieldDate),
				col("paid_at", FieldDate),
				col("is_waived", FieldBoolean),
			),
			Joinable: tables("organization_members"),
		},
	)
}
