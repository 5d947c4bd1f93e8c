// Package libvirt manages the connection to the local libvirt daemon.
//
// vmconf only reads from libvirt: the hypervisor identity for the target
// section and storage pool definitions for the storage section. The
// queries themselves live in internal/resolve, which defines the narrow
// client interfaces it needs; *libvirt.Libvirt from go-libvirt satisfies
// them implicitly.
//
//	client, err := libvirt.ConnectWithContext(ctx, "", 0)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	target := resolve.LibvirtTarget{Client: client.Libvirt()}
package libvirt
