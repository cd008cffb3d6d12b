package service

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"nexuserp/backend/internal/domain"
)

// BusinessName is attached to every session.
const BusinessName = "Nexus Global ERP"

type account struct {
	email string
	hash  []byte
	role  domain.Role
}

// credentialTable holds the two built-in accounts. Passwords are hashed once
// per process on first use and compared with bcrypt.
type credentialTable struct {
	once     sync.Once
	plain    []plainAccount
	accounts map[string]account
}

type plainAccount struct {
	email    string
	password string
	role     domain.Role
}

var defaultCredentials = &credentialTable{
	plain: []plainAccount{
		{email: "admin@erp.com", password: "admin123", role: domain.RoleAdmin},
		{email: "staff@erp.com", password: "staff123", role: domain.RoleStaff},
	},
}

func (c *credentialTable) load() {
	c.once.Do(func() {
		c.accounts = make(map[string]account, len(c.plain))
		for _, p := range c.plain {
			hash, err := bcrypt.GenerateFromPassword([]byte(p.password), bcrypt.DefaultCost)
			if err != nil {
				zap.L().Error("failed to hash built-in credential", zap.String("email", p.email), zap.Error(err))
				continue
			}
			c.accounts[p.email] = account{email: p.email, hash: hash, role: p.role}
		}
	})
}

func (c *credentialTable) match(email string, password string) (account, bool) {
	c.load()
	acc, ok := c.accounts[email]
	if !ok || password == "" {
		return account{}, false
	}
	if bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return account{}, false
	}
	return acc, true
}
