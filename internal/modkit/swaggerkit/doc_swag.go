//go:build swag

package swaggerkit

import docs "nexuscalc/internal/services/api/docs"

func docReader() string { return docs.SwaggerInfo.ReadDoc() }
