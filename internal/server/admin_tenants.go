package server

import (
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umagate/umagate/internal/protocol"
	receiverdomain "github.com/umagate/umagate/internal/receiver/domain"
	tenantdomain "github.com/umagate/umagate/internal/tenant/domain"
	"github.com/umagate/umagate/pkg/db/pagination"
)

type createTenantRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	BaseURL string `json:"base_url"`

	SigningPubKey     string `json:"signing_pub_key"`
	SigningPrivKey    string `json:"signing_priv_key"`
	EncryptionPubKey  string `json:"encryption_pub_key"`
	EncryptionPrivKey string `json:"encryption_priv_key"`

	Tables          tenantdomain.TableNames       `json:"tables"`
	Currencies      []tenantdomain.Currency       `json:"currencies"`
	PayerData       tenantdomain.PayerDataOptions `json:"payer_data"`
	MinSendableSats int64                         `json:"min_sendable_sats"`
	MaxSendableSats int64                         `json:"max_sendable_sats"`
	Active          *bool                         `json:"active"`
	Metadata        map[string]interface{}        `json:"metadata"`
}

// CreateTenant provisions a tenant and its key material.
func (s *Server) CreateTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", protocol.ErrParse, err))
		return
	}

	signingPriv, err := decodeKey(req.SigningPrivKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	encryptionPriv, err := decodeKey(req.EncryptionPrivKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rec, err := s.directory.Add(c.Request.Context(), tenantdomain.CreateTenantRequest{
		ID:      req.ID,
		Name:    req.Name,
		Domain:  req.Domain,
		BaseURL: req.BaseURL,
		SigningKey: tenantdomain.KeyPairInput{
			PublicKeyHex: req.SigningPubKey,
			PrivateKey:   signingPriv,
		},
		EncryptionKey: tenantdomain.KeyPairInput{
			PublicKeyHex: req.EncryptionPubKey,
			PrivateKey:   encryptionPriv,
		},
		Tables:          req.Tables,
		Currencies:      req.Currencies,
		PayerData:       req.PayerData,
		MinSendableSats: req.MinSendableSats,
		MaxSendableSats: req.MaxSendableSats,
		Active:          req.Active,
		Metadata:        req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec.ToPublic())
}

func decodeKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: private key must be hex", protocol.ErrParse)
	}
	return decoded, nil
}

func (s *Server) GetTenant(c *gin.Context) {
	rec, err := s.directory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rec == nil {
		AbortWithError(c, tenantdomain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, rec.ToPublic())
}

func (s *Server) ListTenants(c *gin.Context) {
	records := s.directory.ListActive()
	tenants := make([]tenantdomain.Tenant, 0, len(records))
	for _, rec := range records {
		tenants = append(tenants, rec.ToPublic())
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

func (s *Server) UpdateTenant(c *gin.Context) {
	var patch tenantdomain.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", protocol.ErrParse, err))
		return
	}

	rec, err := s.directory.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec.ToPublic())
}

func (s *Server) DeleteTenant(c *gin.Context) {
	removed, err := s.directory.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !removed {
		AbortWithError(c, tenantdomain.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

type createUserRequest struct {
	Username         string   `json:"username"`
	CallbackID       string   `json:"callback_id"`
	ComplianceStatus string   `json:"compliance_status"`
	ChannelIDs       []string `json:"channel_ids"`
	NodePubKey       string   `json:"node_pub_key"`
}

// CreateTenantUser registers a payable receiver under a tenant.
func (s *Server) CreateTenantUser(c *gin.Context) {
	ctx := c.Request.Context()
	rec, err := s.directory.Get(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rec == nil {
		AbortWithError(c, tenantdomain.ErrNotFound)
		return
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", protocol.ErrParse, err))
		return
	}
	if req.Username == "" {
		AbortWithError(c, fmt.Errorf("%w: username is required", protocol.ErrParse))
		return
	}

	user, err := s.users.Create(ctx, rec.Tables.Users, receiverdomain.User{
		Username:         req.Username,
		CallbackID:       req.CallbackID,
		ComplianceStatus: req.ComplianceStatus,
		ChannelIDs:       req.ChannelIDs,
		NodePubKey:       req.NodePubKey,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (s *Server) ListTenantUsers(c *gin.Context) {
	ctx := c.Request.Context()
	rec, err := s.directory.Get(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if rec == nil {
		AbortWithError(c, tenantdomain.ErrNotFound)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %v", protocol.ErrParse, err))
		return
	}

	users, info, err := s.users.ListPage(ctx, rec.Tables.Users, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "page_info": info})
}
