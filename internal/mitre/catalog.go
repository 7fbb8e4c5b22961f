// Package mitre содержит встроенный каталог техник MITRE ATT&CK.
//
// Каталог отвечает на один вопрос: существует ли техника с данным ID.
// Содержимое базы знаний ATT&CK (описания, тактики, митигации) —
// вне зоны ответственности Fabrica.
package mitre

import (
	"context"
	"strings"
	"sync"
)

// Technique — запись каталога о технике ATT&CK.
type Technique struct {
	// ID — идентификатор техники (например, "T1078" или "T1078.002").
	ID string `json:"id"`

	// Name — название техники.
	Name string `json:"name"`

	// Tactic — короткое имя тактики (например, "credential-access").
	Tactic string `json:"tactic,omitempty"`
}

// Catalog — потокобезопасный каталог техник.
type Catalog struct {
	mu         sync.RWMutex
	techniques map[string]Technique
}

// NewCatalog создаёт каталог с предзагруженным набором техник,
// встречающихся в синтетических сценариях журналов безопасности.
func NewCatalog() *Catalog {
	c := &Catalog{techniques: make(map[string]Technique)}
	c.load(builtinTechniques)
	return c
}

// load добавляет техники в каталог.
func (c *Catalog) load(techniques []Technique) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range techniques {
		c.techniques[strings.ToUpper(t.ID)] = t
	}
}

// Register добавляет технику в каталог.
func (c *Catalog) Register(t Technique) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.techniques[strings.ToUpper(t.ID)] = t
}

// ValidateTechniqueID возвращает true, если техника существует в каталоге.
func (c *Catalog) ValidateTechniqueID(_ context.Context, id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.techniques[strings.ToUpper(id)]
	return ok
}

// GetTechnique возвращает запись каталога по ID.
func (c *Catalog) GetTechnique(id string) (Technique, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.techniques[strings.ToUpper(id)]
	return t, ok
}

// Size возвращает количество техник в каталоге.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.techniques)
}

// Техники, типичные для сценариев журналов Windows Security.
var builtinTechniques = []Technique{
	{ID: "T1003", Name: "OS Credential Dumping", Tactic: "credential-access"},
	{ID: "T1003.001", Name: "LSASS Memory", Tactic: "credential-access"},
	{ID: "T1021", Name: "Remote Services", Tactic: "lateral-movement"},
	{ID: "T1021.001", Name: "Remote Desktop Protocol", Tactic: "lateral-movement"},
	{ID: "T1021.002", Name: "SMB/Windows Admin Shares", Tactic: "lateral-movement"},
	{ID: "T1027", Name: "Obfuscated Files or Information", Tactic: "defense-evasion"},
	{ID: "T1053", Name: "Scheduled Task/Job", Tactic: "persistence"},
	{ID: "T1053.005", Name: "Scheduled Task", Tactic: "persistence"},
	{ID: "T1059", Name: "Command and Scripting Interpreter", Tactic: "execution"},
	{ID: "T1059.001", Name: "PowerShell", Tactic: "execution"},
	{ID: "T1059.003", Name: "Windows Command Shell", Tactic: "execution"},
	{ID: "T1068", Name: "Exploitation for Privilege Escalation", Tactic: "privilege-escalation"},
	{ID: "T1070", Name: "Indicator Removal", Tactic: "defense-evasion"},
	{ID: "T1070.001", Name: "Clear Windows Event Logs", Tactic: "defense-evasion"},
	{ID: "T1071", Name: "Application Layer Protocol", Tactic: "command-and-control"},
	{ID: "T1078", Name: "Valid Accounts", Tactic: "defense-evasion"},
	{ID: "T1078.002", Name: "Domain Accounts", Tactic: "defense-evasion"},
	{ID: "T1078.003", Name: "Local Accounts", Tactic: "defense-evasion"},
	{ID: "T1098", Name: "Account Manipulation", Tactic: "persistence"},
	{ID: "T1110", Name: "Brute Force", Tactic: "credential-access"},
	{ID: "T1110.001", Name: "Password Guessing", Tactic: "credential-access"},
	{ID: "T1110.003", Name: "Password Spraying", Tactic: "credential-access"},
	{ID: "T1136", Name: "Create Account", Tactic: "persistence"},
	{ID: "T1136.001", Name: "Local Account", Tactic: "persistence"},
	{ID: "T1204", Name: "User Execution", Tactic: "execution"},
	{ID: "T1484", Name: "Domain or Tenant Policy Modification", Tactic: "privilege-escalation"},
	{ID: "T1531", Name: "Account Access Removal", Tactic: "impact"},
	{ID: "T1547", Name: "Boot or Logon Autostart Execution", Tactic: "persistence"},
	{ID: "T1547.001", Name: "Registry Run Keys / Startup Folder", Tactic: "persistence"},
	{ID: "T1548", Name: "Abuse Elevation Control Mechanism", Tactic: "privilege-escalation"},
	{ID: "T1550", Name: "Use Alternate Authentication Material", Tactic: "lateral-movement"},
	{ID: "T1558", Name: "Steal or Forge Kerberos Tickets", Tactic: "credential-access"},
	{ID: "T1558.003", Name: "Kerberoasting", Tactic: "credential-access"},
	{ID: "T1562", Name: "Impair Defenses", Tactic: "defense-evasion"},
	{ID: "T1562.002", Name: "Disable Windows Event Logging", Tactic: "defense-evasion"},
}
