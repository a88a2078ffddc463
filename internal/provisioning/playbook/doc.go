// Package playbook configures provisioned instances with Ansible.
//
// Before a playbook runs every target instance must accept SSH sessions.
// The playbook is then run by ansible-playbook against a generated INI
// inventory, with the playbook's variables resolved from the provisioned
// state and passed as JSON extra vars. Instances with more than one port
// first get their secondary interfaces configured by the NIC playbook.
package playbook
